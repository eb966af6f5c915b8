package model

import (
	_ "embed"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxInstances is the fixed capacity of an instance table. It is bounded by the 64 KiB
// uniform buffer binding limit: 1024 * 64-byte matrices.
const MaxInstances = 1024

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct.
// Matches GPUVertex layout exactly (32 bytes, tightly packed vertex attributes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 32 bytes, attribute locations 0 (position), 1 (normal), 2 (uv).
type GPUVertex struct {
	Position [3]float32 // offset  0: object-space position (12 bytes)
	Normal   [3]float32 // offset 12: object-space normal (12 bytes)
	TexCoord [2]float32 // offset 24: texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (32)
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.put(buf)
	return buf
}

func (g *GPUVertex) put(buf []byte) {
	common.PutFloats(buf[0:], g.Position[:])
	common.PutFloats(buf[12:], g.Normal[:])
	common.PutFloats(buf[24:], g.TexCoord[:])
}

// MarshalVertices serializes a vertex slice into one contiguous vertex buffer.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices) * 32 bytes
func MarshalVertices(vertices []GPUVertex) []byte {
	stride := int(unsafe.Sizeof(GPUVertex{}))
	buf := make([]byte, len(vertices)*stride)
	for i := range vertices {
		vertices[i].put(buf[i*stride:])
	}
	return buf
}

// UnmarshalVertices decodes a vertex buffer produced by MarshalVertices.
//
// Parameters:
//   - data: the raw vertex buffer
//
// Returns:
//   - []GPUVertex: the decoded vertices
//   - error: if the buffer length is not a multiple of the vertex stride
func UnmarshalVertices(data []byte) ([]GPUVertex, error) {
	stride := int(unsafe.Sizeof(GPUVertex{}))
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("vertex buffer length %d is not a multiple of stride %d", len(data), stride)
	}
	out := make([]GPUVertex, len(data)/stride)
	for i := range out {
		b := data[i*stride:]
		common.GetFloats(b[0:], out[i].Position[:])
		common.GetFloats(b[12:], out[i].Normal[:])
		common.GetFloats(b[24:], out[i].TexCoord[:])
	}
	return out, nil
}

// GPUInstanceTableSource is the canonical WGSL definition of the InstanceTable struct.
// Matches GPUInstanceTable layout exactly (65536 bytes).
//
//go:embed assets/instance_table.wgsl
var GPUInstanceTableSource string

// GPUInstanceTable is the GPU-aligned representation of the per-draw instance transform table.
// Matches the WGSL InstanceTable struct layout exactly (see GPUInstanceTableSource).
// Each entry is a column-major model matrix indexed by the instance index of the draw.
// Size: 65536 bytes (1024 * mat4x4<f32>).
type GPUInstanceTable struct {
	Models [MaxInstances][16]float32 // offset 0: model matrices (array<mat4x4<f32>, 1024>)
}

// Size returns the size of the GPUInstanceTable struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (65536)
func (g *GPUInstanceTable) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Set writes the model matrix for one instance slot.
//
// Parameters:
//   - index: the 0-based instance index
//   - m: the column-major model matrix
//
// Returns:
//   - error: if index is outside [0, MaxInstances)
func (g *GPUInstanceTable) Set(index int, m mgl32.Mat4) error {
	if index < 0 || index >= MaxInstances {
		return fmt.Errorf("instance index %d out of range [0, %d)", index, MaxInstances)
	}
	g.Models[index] = m
	return nil
}

// At returns the model matrix stored at an instance slot. The index is not range checked
// beyond Go's own array bounds check.
//
// Parameters:
//   - index: the 0-based instance index
//
// Returns:
//   - mgl32.Mat4: the stored model matrix
func (g *GPUInstanceTable) At(index uint32) mgl32.Mat4 {
	return g.Models[index]
}

// Marshal serializes the whole table into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the 65536-byte serialized table
func (g *GPUInstanceTable) Marshal() []byte {
	return g.MarshalRange(MaxInstances)
}

// MarshalRange serializes only the first count matrices. The result is a valid prefix
// write for a buffer bound as InstanceTable, letting hosts upload just the live instances.
//
// Parameters:
//   - count: number of leading matrices to serialize, clamped to [0, MaxInstances]
//
// Returns:
//   - []byte: count * 64 bytes
func (g *GPUInstanceTable) MarshalRange(count int) []byte {
	count = max(0, min(count, MaxInstances))
	buf := make([]byte, count*64)
	for i := range count {
		common.PutFloats(buf[i*64:], g.Models[i][:])
	}
	return buf
}

// Unmarshal decodes a serialized table. Buffers shorter than the full table decode the
// leading matrices and leave the rest untouched.
//
// Parameters:
//   - data: the raw buffer
//
// Returns:
//   - error: if the buffer is larger than the table or not a whole number of matrices
func (g *GPUInstanceTable) Unmarshal(data []byte) error {
	if len(data) > g.Size() || len(data)%64 != 0 {
		return fmt.Errorf("instance table buffer length %d invalid for %d-byte table", len(data), g.Size())
	}
	for i := range len(data) / 64 {
		common.GetFloats(data[i*64:], g.Models[i][:])
	}
	return nil
}
