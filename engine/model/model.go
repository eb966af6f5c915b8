package model

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// model is the implementation of the Model interface.
type model struct {
	name           string
	vertices       []GPUVertex
	indices        []uint32
	meshProvider   bind_group_provider.BindGroupProvider
	boundingRadius float32
}

// Model defines the interface for an indexed triangle mesh. The mesh owns its vertex stream
// (position, normal, uv) and is immutable once built; instances of it are placed through
// an InstanceSet rather than by mutating the mesh.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices returns the mesh vertices.
	//
	// Returns:
	//   - []GPUVertex: the vertex stream
	Vertices() []GPUVertex

	// Indices returns the triangle list indices.
	//
	// Returns:
	//   - []uint32: three indices per triangle
	Indices() []uint32

	// VertexData returns the serialized vertex buffer.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the serialized little-endian uint32 index buffer.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices in the mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// BoundingRadius returns the radius of an origin-centred sphere enclosing every vertex.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// MeshProvider retrieves the BindGroupProvider holding the uploaded mesh buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider, or nil before upload
	MeshProvider() bind_group_provider.BindGroupProvider

	// SetMeshProvider sets the BindGroupProvider holding the uploaded mesh buffers.
	//
	// Parameters:
	//   - provider: the mesh provider
	SetMeshProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Model = &model{}

// NewModel creates a new Model with the given options. The bounding radius is derived from
// the vertices unless set explicitly.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: the newly created model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius == 0 {
		for _, v := range m.vertices {
			m.boundingRadius = max(m.boundingRadius, mgl32.Vec3(v.Position).Len())
		}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	return m.vertices
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) VertexData() []byte {
	return MarshalVertices(m.vertices)
}

func (m *model) IndexData() []byte {
	buf := make([]byte, len(m.indices)*4)
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

func (m *model) IndexCount() int {
	return len(m.indices)
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) MeshProvider() bind_group_provider.BindGroupProvider {
	return m.meshProvider
}

func (m *model) SetMeshProvider(provider bind_group_provider.BindGroupProvider) {
	m.meshProvider = provider
}
