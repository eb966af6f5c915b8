package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	// ErrUnknownPipeline is returned when a draw names a pipeline that was never registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrInstanceCountExceeded is returned when a draw asks for more instances than an instance
	// table holds.
	ErrInstanceCountExceeded = errors.New("instance count exceeds instance table capacity")

	// ErrInvalidSize is returned by Resize for a non-positive width or height.
	ErrInvalidSize = errors.New("attachment size must be positive")

	// ErrBindGroupMismatch is returned when the bind groups of a draw do not satisfy the
	// pipeline's layouts.
	ErrBindGroupMismatch = shading.ErrBindGroupMismatch
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu  *sync.Mutex
	log *zap.Logger

	pipelineCache map[string]shading.ShadingPipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	width      int
	height     int
	workers    int
	clearColor mgl32.Vec4
	reverseZ   bool

	frameStats FrameStats
}

// Renderer is the host side of the shading core. It owns the registered shading pipelines,
// initializes bind groups and mesh buffers, validates every draw call against the instance and
// binding contracts, and forwards it to the backend.
//
// A frame is BeginFrame, any number of DrawCall, then EndFrame; Frame returns the result.
type Renderer interface {
	// Pipeline retrieves a registered shading pipeline.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - shading.ShadingPipeline: the pipeline, or nil if not registered
	Pipeline(key string) shading.ShadingPipeline

	// Pipelines returns a copy of the pipeline registry.
	//
	// Returns:
	//   - map[string]shading.ShadingPipeline: pipelines keyed by pipeline key
	Pipelines() map[string]shading.ShadingPipeline

	// RegisterPipelines adds pipelines to the registry. Keys already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: if a pipeline is nil
	RegisterPipelines(pipelines ...shading.ShadingPipeline) error

	// Resize changes the size of the color and depth attachments, discarding their contents.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrInvalidSize if either dimension is not positive
	Resize(width, height int) error

	// Size returns the attachment size in pixels.
	Size() (int, int)

	// ReverseZ reports whether the depth attachment is cleared to 0 for reverse-Z projection.
	ReverseZ() bool

	// InitMeshBuffers validates mesh data and stores it on a provider for later draw calls.
	//
	// Parameters:
	//   - provider: the mesh provider
	//   - vertexData: the serialized vertex buffer
	//   - indexData: the serialized little-endian uint32 index buffer
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: if the data is malformed
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup allocates a provider's buffers from a bind group layout descriptor.
	//
	// Parameters:
	//   - provider: the provider to allocate
	//   - descriptor: the layout descriptor, normally from Pipeline().BindGroupLayout(group)
	//   - bufferSizeOverrides: custom buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: if a binding cannot be allocated
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers applies buffer writes in order.
	//
	// Parameters:
	//   - writes: the writes to apply
	//
	// Returns:
	//   - error: the first write that was rejected
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame clears the attachments and starts a frame.
	//
	// Returns:
	//   - error: if the previous frame was not ended
	BeginFrame() error

	// DrawCall draws instances [0, instanceCount) of a mesh with a registered pipeline.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - meshProvider: the provider holding vertex and index data
	//   - instanceCount: the number of instances, at most model.MaxInstances
	//   - bindGroups: providers bound at groups 0..n-1
	//
	// Returns:
	//   - error: ErrUnknownPipeline, ErrInstanceCountExceeded, ErrBindGroupMismatch or a frame error
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame finishes the frame.
	//
	// Returns:
	//   - error: if no frame was begun
	EndFrame() error

	// Frame returns the rendered attachments.
	//
	// Returns:
	//   - *raster.Framebuffer: the color and depth attachments
	Frame() *raster.Framebuffer

	// Stats returns the counters of the current or last finished frame.
	Stats() FrameStats

	// Release stops the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer. Defaults: 640x480, one worker, transparent black clear color,
// standard depth (cleared to 1).
//
// Parameters:
//   - backendType: the backend implementation
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		log:           logger.Named("renderer"),
		pipelineCache: make(map[string]shading.ShadingPipeline),
		backendType:   backendType,
		width:         640,
		height:        480,
		workers:       1,
	}

	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeSoftware:
		fallthrough
	default:
		r.backend = newSoftwareRendererBackend(r.width, r.height, r.workers, r.log)
	}

	clearDepth := float32(1)
	if r.reverseZ {
		clearDepth = 0
	}
	r.backend.SetClear(r.clearColor, clearDepth)
	r.backend.Configure(r.width, r.height)

	r.log.Info("renderer created",
		zap.Int("width", r.width),
		zap.Int("height", r.height),
		zap.Int("workers", r.workers),
		zap.Bool("reverse_z", r.reverseZ),
	)
	return r
}

func (r *renderer) Pipeline(key string) shading.ShadingPipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]shading.ShadingPipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]shading.ShadingPipeline, len(r.pipelineCache))
	for k, v := range r.pipelineCache {
		out[k] = v
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...shading.ShadingPipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if p == nil {
			return errors.New("cannot register a nil pipeline")
		}
		key := p.Key()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		r.pipelineCache[key] = p
		r.log.Debug("pipeline registered", zap.String("pipeline", key), zap.Int("bind_groups", p.BindGroupCount()))
	}
	return nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	r.backend.Configure(width, height)
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) ReverseZ() bool {
	return r.reverseZ
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.mu.Lock()
	r.frameStats = FrameStats{}
	r.mu.Unlock()
	return nil
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownPipeline, pipelineKey)
	}
	if instanceCount > model.MaxInstances {
		return fmt.Errorf("%w: %d > %d", ErrInstanceCountExceeded, instanceCount, model.MaxInstances)
	}
	if meshProvider == nil {
		return fmt.Errorf("draw %s: nil mesh provider", pipelineKey)
	}

	stats, err := r.backend.DrawCall(p, meshProvider, instanceCount, bindGroups)
	if err != nil {
		return fmt.Errorf("draw %s: %w", pipelineKey, err)
	}

	r.mu.Lock()
	r.frameStats.Add(stats)
	r.mu.Unlock()
	return nil
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Frame() *raster.Framebuffer {
	return r.backend.Frame()
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameStats
}

func (r *renderer) Release() {
	r.backend.Release()
}
