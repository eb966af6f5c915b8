package renderer

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeSoftware executes the shading pipelines on the CPU over a worker pool and
	// rasterizes into an in-memory framebuffer.
	BackendTypeSoftware RendererBackendType = iota
)

// FrameStats counts the work submitted during one frame.
type FrameStats struct {
	Draws             int
	Instances         int
	VertexInvocations int
	Primitives        int
	Rejected          int
	Fragments         int
}

// Add accumulates another set of counters.
func (s *FrameStats) Add(o FrameStats) {
	s.Draws += o.Draws
	s.Instances += o.Instances
	s.VertexInvocations += o.VertexInvocations
	s.Primitives += o.Primitives
	s.Rejected += o.Rejected
	s.Fragments += o.Fragments
}

// Sub returns the counters accumulated since an earlier snapshot o.
func (s FrameStats) Sub(o FrameStats) FrameStats {
	return FrameStats{
		Draws:             s.Draws - o.Draws,
		Instances:         s.Instances - o.Instances,
		VertexInvocations: s.VertexInvocations - o.VertexInvocations,
		Primitives:        s.Primitives - o.Primitives,
		Rejected:          s.Rejected - o.Rejected,
		Fragments:         s.Fragments - o.Fragments,
	}
}

// RendererBackend executes the Renderer's commands. The Renderer validates draw calls before
// handing them to the backend.
type RendererBackend interface {
	// Configure sets the size of the color and depth attachments, discarding their contents.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	Configure(width, height int)

	// SetClear sets the values the attachments are cleared to at the start of every frame.
	//
	// Parameters:
	//   - color: the clear color
	//   - depth: the clear depth
	SetClear(color mgl32.Vec4, depth float32)

	// InitMeshBuffers validates and stores mesh data on a provider.
	//
	// Parameters:
	//   - provider: the mesh provider
	//   - vertexData: serialized model.GPUVertex values
	//   - indexData: little-endian uint32 indices
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: if the vertex data is not whole vertices or an index is out of range
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup allocates a provider's buffers from a layout descriptor.
	//
	// Parameters:
	//   - provider: the provider to allocate
	//   - descriptor: the bind group layout descriptor
	//   - bufferSizeOverrides: per-binding sizes replacing MinBindingSize (nil safe)
	//
	// Returns:
	//   - error: if a binding cannot be sized
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers applies buffer writes in order, stopping at the first failure.
	//
	// Parameters:
	//   - writes: the writes to apply
	//
	// Returns:
	//   - error: the first rejected write
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame clears the attachments and opens a frame.
	//
	// Returns:
	//   - error: if a frame is already open
	BeginFrame() error

	// DrawCall runs one instanced draw into the open frame.
	//
	// Parameters:
	//   - sp: the shading pipeline
	//   - meshProvider: the provider holding vertex and index data
	//   - instanceCount: instances [0, instanceCount) are drawn
	//   - bindGroups: providers bound at groups 0..n-1
	//
	// Returns:
	//   - FrameStats: the work done by this draw
	//   - error: if no frame is open or the bind groups do not match the pipeline
	DrawCall(sp shading.ShadingPipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) (FrameStats, error)

	// EndFrame closes the open frame.
	//
	// Returns:
	//   - error: if no frame is open
	EndFrame() error

	// Frame returns the color and depth attachments. Contents are complete after EndFrame.
	Frame() *raster.Framebuffer

	// Release stops the backend's workers.
	Release()
}
