package bind_group_provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnknownBinding is returned when a write or read targets a binding with no buffer.
	ErrUnknownBinding = errors.New("unknown binding")

	// ErrWriteOutOfRange is returned when a write would extend past the end of a buffer.
	ErrWriteOutOfRange = errors.New("buffer write out of range")
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.RWMutex

	// label is a debug label added for convenience.
	label string

	// layout is the descriptor the buffers were allocated from. Empty until Allocate is called.
	layout wgpu.BindGroupLayoutDescriptor

	// buffers holds the uniform/storage buffer contents keyed by binding index.
	buffers map[int][]byte

	// The following fields are only used by mesh providers.

	vertexBuffer []byte
	indexBuffer  []byte
	indexCount   int
}

// BindGroupProvider is the host-side half of one bind group: the byte contents of every buffer
// binding in the group, sized from the layout descriptor parsed out of the shader. Components
// (camera, scene uniforms, instance sets, materials, meshes) own a provider and push serialized
// GPU structs into it through BufferWrite; the renderer reads the bytes back when it draws.
//
// Usage pattern:
//  1. Component creates a provider with a unique label
//  2. Renderer.InitBindGroup allocates its buffers from a shader's layout descriptor
//  3. Component issues BufferWrites with Marshal()ed GPU structs
//  4. Renderer.DrawCall binds the provider at its group index
type BindGroupProvider interface {
	// Label returns the provider's debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Allocate creates zeroed buffers for every buffer entry of the layout descriptor. Each
	// buffer is sized to the entry's MinBindingSize unless sizeOverrides provides a size.
	//
	// Parameters:
	//   - desc: the bind group layout descriptor parsed from a shader
	//   - sizeOverrides: optional per-binding sizes, may be nil
	//
	// Returns:
	//   - error: if a buffer entry has neither a MinBindingSize nor an override
	Allocate(desc wgpu.BindGroupLayoutDescriptor, sizeOverrides map[int]uint64) error

	// Layout returns the descriptor the provider was allocated from.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
	Layout() wgpu.BindGroupLayoutDescriptor

	// Buffer returns a snapshot copy of one binding's bytes.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: ErrUnknownBinding if the binding has no buffer
	Buffer(binding int) ([]byte, error)

	// BufferSize returns the allocated size of one binding's buffer, or 0 if absent.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes
	BufferSize(binding int) uint64

	// Write copies data into a binding's buffer at a byte offset.
	//
	// Parameters:
	//   - binding: the binding index
	//   - offset: the byte offset into the buffer
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: ErrUnknownBinding or ErrWriteOutOfRange
	Write(binding int, offset uint64, data []byte) error

	// VertexBuffer returns the mesh vertex buffer.
	//
	// Returns:
	//   - []byte: the vertex buffer bytes, nil for non-mesh providers
	VertexBuffer() []byte

	// IndexBuffer returns the mesh index buffer of little-endian uint32 indices.
	//
	// Returns:
	//   - []byte: the index buffer bytes, nil for non-mesh providers
	IndexBuffer() []byte

	// IndexCount returns the number of indices drawn for this mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// SetMesh stores mesh vertex and index data.
	//
	// Parameters:
	//   - vertexData: the serialized vertex buffer
	//   - indexData: the serialized index buffer
	//   - indexCount: the number of indices
	SetMesh(vertexData, indexData []byte, indexCount int)

	// Release drops every buffer held by the provider.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider. Buffers are created later by Allocate,
// normally through Renderer.InitBindGroup.
//
// Parameters:
//   - label: a debug label
//   - options: functional options applied after defaults
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:      &sync.RWMutex{},
		label:   label,
		buffers: make(map[int][]byte),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Allocate(desc wgpu.BindGroupLayoutDescriptor, sizeOverrides map[int]uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buffers := make(map[int][]byte, len(desc.Entries))
	for _, entry := range desc.Entries {
		if entry.Buffer.Type == wgpu.BufferBindingTypeUndefined {
			continue
		}
		size := entry.Buffer.MinBindingSize
		if override, ok := sizeOverrides[int(entry.Binding)]; ok {
			size = override
		}
		if size == 0 {
			return fmt.Errorf("%s: binding %d has no size", p.label, entry.Binding)
		}
		buffers[int(entry.Binding)] = make([]byte, size)
	}
	p.layout = desc
	p.buffers = buffers
	return nil
}

func (p *bindGroupProvider) Layout() wgpu.BindGroupLayoutDescriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.layout
}

func (p *bindGroupProvider) Buffer(binding int) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	buf, ok := p.buffers[binding]
	if !ok {
		return nil, fmt.Errorf("%s: %w %d", p.label, ErrUnknownBinding, binding)
	}
	return append([]byte(nil), buf...), nil
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint64(len(p.buffers[binding]))
}

func (p *bindGroupProvider) Write(binding int, offset uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf, ok := p.buffers[binding]
	if !ok {
		return fmt.Errorf("%s: %w %d", p.label, ErrUnknownBinding, binding)
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("%s: %w: binding %d, offset %d + %d bytes > %d",
			p.label, ErrWriteOutOfRange, binding, offset, len(data), len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

func (p *bindGroupProvider) VertexBuffer() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indexCount
}

func (p *bindGroupProvider) SetMesh(vertexData, indexData []byte, indexCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vertexBuffer = vertexData
	p.indexBuffer = indexData
	p.indexCount = indexCount
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers = make(map[int][]byte)
	p.vertexBuffer = nil
	p.indexBuffer = nil
	p.indexCount = 0
}
