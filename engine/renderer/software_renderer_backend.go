package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	// ErrFrameNotBegun is returned by DrawCall and EndFrame outside BeginFrame/EndFrame.
	ErrFrameNotBegun = errors.New("no frame in progress")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame was not ended.
	ErrFrameInProgress = errors.New("previous frame not ended")

	// ErrUnsupportedState is returned by DrawCall for fixed-function state the rasterizer
	// cannot reproduce.
	ErrUnsupportedState = errors.New("unsupported pipeline state")
)

// decodedMesh is the CPU-side view of a mesh provider's buffers.
type decodedMesh struct {
	vertices []model.GPUVertex
	indices  []uint32
}

type softwareRendererBackendImpl struct {
	mu  *sync.Mutex
	log *zap.Logger

	pool    worker.DynamicWorkerPool
	workers int

	frame      *raster.Framebuffer
	clearColor mgl32.Vec4
	clearDepth float32
	inFrame    bool

	meshes map[bind_group_provider.BindGroupProvider]decodedMesh
}

var _ RendererBackend = &softwareRendererBackendImpl{}

// newSoftwareRendererBackend creates the CPU backend. Vertex work is split by instance and
// rasterization by horizontal band, both over one worker pool.
func newSoftwareRendererBackend(width, height, workers int, log *zap.Logger) RendererBackend {
	workers = max(workers, 1)
	return &softwareRendererBackendImpl{
		mu:         &sync.Mutex{},
		log:        log,
		pool:       worker.NewDynamicWorkerPool(workers, workers*4, time.Second),
		workers:    workers,
		frame:      raster.NewFramebuffer(width, height),
		clearDepth: 1,
		meshes:     make(map[bind_group_provider.BindGroupProvider]decodedMesh),
	}
}

func (b *softwareRendererBackendImpl) Configure(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = raster.NewFramebuffer(width, height)
	b.frame.Clear(b.clearColor, b.clearDepth)
}

func (b *softwareRendererBackendImpl) SetClear(color mgl32.Vec4, depth float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = color
	b.clearDepth = depth
}

func (b *softwareRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	vertices, err := model.UnmarshalVertices(vertexData)
	if err != nil {
		return fmt.Errorf("%s: %w", provider.Label(), err)
	}
	if indexCount < 0 || len(indexData) < indexCount*4 {
		return fmt.Errorf("%s: index buffer holds %d bytes, %d indices need %d", provider.Label(), len(indexData), indexCount, indexCount*4)
	}
	indices := make([]uint32, indexCount)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(indexData[i*4:])
		if int(indices[i]) >= len(vertices) {
			return fmt.Errorf("%s: index %d references vertex %d of %d", provider.Label(), i, indices[i], len(vertices))
		}
	}

	provider.SetMesh(vertexData, indexData, indexCount)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.meshes[provider] = decodedMesh{vertices: vertices, indices: indices}
	return nil
}

func (b *softwareRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	for _, entry := range descriptor.Entries {
		if entry.Buffer.Type == wgpu.BufferBindingTypeUndefined {
			return fmt.Errorf("%s: binding %d is not a buffer binding", provider.Label(), entry.Binding)
		}
	}
	return provider.Allocate(descriptor, bufferSizeOverrides)
}

func (b *softwareRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for i, w := range writes {
		if err := w.Apply(); err != nil {
			return fmt.Errorf("buffer write %d: %w", i, err)
		}
	}
	return nil
}

func (b *softwareRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return ErrFrameInProgress
	}
	b.frame.Clear(b.clearColor, b.clearDepth)
	b.inFrame = true
	return nil
}

// mesh returns the decoded mesh of a provider, decoding and caching it on first use when the
// provider was filled without InitMeshBuffers; must hold mu.
func (b *softwareRendererBackendImpl) mesh(provider bind_group_provider.BindGroupProvider) (decodedMesh, error) {
	if m, ok := b.meshes[provider]; ok {
		return m, nil
	}
	vertices, err := model.UnmarshalVertices(provider.VertexBuffer())
	if err != nil {
		return decodedMesh{}, fmt.Errorf("%s: %w", provider.Label(), err)
	}
	count := provider.IndexCount()
	indexData := provider.IndexBuffer()
	if len(indexData) < count*4 {
		return decodedMesh{}, fmt.Errorf("%s: index buffer too short for %d indices", provider.Label(), count)
	}
	indices := make([]uint32, count)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(indexData[i*4:])
		if int(indices[i]) >= len(vertices) {
			return decodedMesh{}, fmt.Errorf("%s: index %d out of range", provider.Label(), i)
		}
	}
	m := decodedMesh{vertices: vertices, indices: indices}
	b.meshes[provider] = m
	return m, nil
}

func (b *softwareRendererBackendImpl) DrawCall(
	sp shading.ShadingPipeline,
	meshProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) (FrameStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return FrameStats{}, ErrFrameNotBegun
	}
	program, err := sp.Bind(bindGroups)
	if err != nil {
		return FrameStats{}, err
	}
	m, err := b.mesh(meshProvider)
	if err != nil {
		return FrameStats{}, err
	}

	state, err := rasterState(sp.Pipeline())
	if err != nil {
		return FrameStats{}, fmt.Errorf("%s: %w", sp.Key(), err)
	}

	stats := FrameStats{Draws: 1, Instances: int(instanceCount)}
	if instanceCount == 0 || len(m.indices) == 0 {
		return stats, nil
	}

	// Vertex stage: one task per chunk of instances.
	outputs := make([][]shading.VertexOutput, instanceCount)
	chunk := (int(instanceCount) + b.workers - 1) / b.workers
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < int(instanceCount); start += chunk {
		end := min(start+chunk, int(instanceCount))
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for inst := start; inst < end; inst++ {
					out := make([]shading.VertexOutput, len(m.vertices))
					for i, v := range m.vertices {
						out[i] = program.Vertex(v, uint32(inst))
					}
					outputs[inst] = out
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
	stats.VertexInvocations = int(instanceCount) * len(m.vertices)

	// Raster stage: one task per band; every band walks the instances in order so the result
	// matches a sequential draw.
	height := b.frame.Height()
	bands := min(b.workers, height)
	bandHeight := (height + bands - 1) / bands
	bandStats := make([]raster.Stats, bands)
	for band := range bands {
		y0 := band * bandHeight
		y1 := min(y0+bandHeight, height)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for inst := range outputs {
					bandStats[band].Add(b.frame.DrawIndexedBand(outputs[inst], m.indices, program.Fragment, state, y0, y1))
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	stats.Primitives = bandStats[0].Primitives
	stats.Rejected = bandStats[0].Rejected
	for _, s := range bandStats {
		stats.Fragments += s.Fragments
	}

	b.log.Debug("draw",
		zap.String("pipeline", sp.Key()),
		zap.String("mesh", meshProvider.Label()),
		zap.Uint32("instances", instanceCount),
		zap.Int("fragments", stats.Fragments),
	)
	return stats, nil
}

// depth24plus resolution, the unit of the pipeline's constant depth bias
const depthBiasUnit = 1.0 / (1 << 24)

// rasterState translates a pipeline's fixed-function state for the rasterizer.
func rasterState(p pipeline.Pipeline) (raster.State, error) {
	state := raster.State{
		DepthTest:           p.DepthTestEnabled(),
		DepthWrite:          p.DepthWriteEnabled(),
		Compare:             p.DepthCompare(),
		DepthBias:           float32(p.DepthBias()) * depthBiasUnit,
		DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
		CullMode:            p.CullMode(),
		FrontFace:           p.FrontFace(),
		Preserve:            wgpu.ColorWriteMaskAll &^ p.WriteMask(),
	}

	switch p.Topology() {
	case wgpu.PrimitiveTopologyTriangleList:
		state.Topology = raster.TopologyTriangleList
	case wgpu.PrimitiveTopologyTriangleStrip:
		state.Topology = raster.TopologyTriangleStrip
	case wgpu.PrimitiveTopologyPointList:
		state.Topology = raster.TopologyPointList
	case wgpu.PrimitiveTopologyLineList:
		state.Topology = raster.TopologyLineList
	case wgpu.PrimitiveTopologyLineStrip:
		state.Topology = raster.TopologyLineStrip
	default:
		return raster.State{}, fmt.Errorf("%w: topology %d", ErrUnsupportedState, p.Topology())
	}
	if p.CullMode() > wgpu.CullModeBack {
		return raster.State{}, fmt.Errorf("%w: cull mode %d", ErrUnsupportedState, p.CullMode())
	}
	if p.FrontFace() > wgpu.FrontFaceCW {
		return raster.State{}, fmt.Errorf("%w: front face %d", ErrUnsupportedState, p.FrontFace())
	}
	if p.WriteMask()&^wgpu.ColorWriteMaskAll != 0 {
		return raster.State{}, fmt.Errorf("%w: write mask %#x", ErrUnsupportedState, uint32(p.WriteMask()))
	}
	if p.BlendEnabled() {
		if p.BlendState() == nil {
			return raster.State{}, fmt.Errorf("%w: blending enabled without a blend state", ErrUnsupportedState)
		}
		bs := *p.BlendState()
		state.Blend = &bs
	}
	return state, nil
}

func (b *softwareRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return ErrFrameNotBegun
	}
	b.inFrame = false
	return nil
}

func (b *softwareRendererBackendImpl) Frame() *raster.Framebuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

func (b *softwareRendererBackendImpl) Release() {
	b.pool.Stop()
}
