package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrLayoutMismatch is returned when two layouts that must agree do not: a binding declared
// differently by the vertex and fragment stages, or a WGSL struct whose memory layout differs
// from its Go mirror.
var ErrLayoutMismatch = errors.New("layout mismatch")

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// bindGroupLayouts is the merge of both stages' layouts, keyed by group index.
	bindGroupLayouts map[int]wgpu.BindGroupLayoutDescriptor

	// The following properties configure the fixed-function state and can be set with the
	// builder options.

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthCompare        wgpu.CompareFunction
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Pipeline is a render pipeline definition: a vertex and a fragment shader, the bind group
// layouts they share, and the fixed-function state used to draw with them.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader for a stage.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the stage's shader, or nil for an unknown stage
	Shader(shaderType shader.ShaderType) shader.Shader

	// BindGroupLayouts returns the merged layout descriptors of both stages.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupLayout returns the merged layout descriptor of one group.
	//
	// Parameters:
	//   - group: the group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, empty if the group is unused
	BindGroupLayout(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupCount returns one past the highest group index used by either stage.
	// Groups below it that no stage declares are still bound as empty groups.
	//
	// Returns:
	//   - int: the number of bind group slots the pipeline consumes
	BindGroupCount() int

	// VertexBufferLayouts returns the vertex buffer layouts of the vertex stage in slot order.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: one layout per vertex buffer slot
	VertexBufferLayouts() []wgpu.VertexBufferLayout

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// DepthCompare returns the depth compare function, CompareFunctionAlways when depth
	// testing is disabled.
	//
	// Returns:
	//   - wgpu.CompareFunction: the effective compare function
	DepthCompare() wgpu.CompareFunction

	// DepthBias returns the constant depth bias.
	DepthBias() int32

	// DepthBiasSlopeScale returns the slope-scaled depth bias.
	DepthBiasSlopeScale() float32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state used when blending is enabled.
	BlendState() *wgpu.BlendState

	// RenderDescriptor assembles the WebGPU render pipeline descriptor for this pipeline.
	// Module and layout handles may be nil when only the descriptor's shape is needed.
	//
	// Parameters:
	//   - vs: the compiled vertex shader module
	//   - fs: the compiled fragment shader module
	//   - layout: the pipeline layout
	//   - colorFormat: the color target format
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor
	RenderDescriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout, colorFormat wgpu.TextureFormat) *wgpu.RenderPipelineDescriptor
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline from a vertex and a fragment shader. Both shaders
// are required and their bind group layouts must agree where they overlap.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline
//   - error: if a shader is missing or the stage layouts conflict
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.vertexShader == nil || p.fragmentShader == nil {
		return nil, fmt.Errorf("pipeline %s: vertex and fragment shaders are required", pipelineKey)
	}
	if p.vertexShader.ShaderType() != shader.ShaderTypeVertex || p.fragmentShader.ShaderType() != shader.ShaderTypeFragment {
		return nil, fmt.Errorf("pipeline %s: shader stages are swapped", pipelineKey)
	}

	merged, err := MergeBindGroupLayouts(
		p.vertexShader.BindGroupLayoutDescriptors(),
		p.fragmentShader.BindGroupLayoutDescriptors(),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", pipelineKey, err)
	}
	p.bindGroupLayouts = merged
	return p, nil
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.bindGroupLayouts
}

func (p *pipeline) BindGroupLayout(group int) wgpu.BindGroupLayoutDescriptor {
	return p.bindGroupLayouts[group]
}

func (p *pipeline) BindGroupCount() int {
	count := 0
	for g := range p.bindGroupLayouts {
		count = max(count, g+1)
	}
	return count
}

func (p *pipeline) VertexBufferLayouts() []wgpu.VertexBufferLayout {
	layouts := p.vertexShader.VertexLayouts()
	keys := make([]int, 0, len(layouts))
	for k := range layouts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]wgpu.VertexBufferLayout, 0, len(keys))
	for _, k := range keys {
		out = append(out, layouts[k]...)
	}
	return out
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	if !p.depthTestEnabled {
		return wgpu.CompareFunctionAlways
	}
	return p.depthCompare
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) RenderDescriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout, colorFormat wgpu.TextureFormat) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    colorFormat,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		target.Blend = p.blendState
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: p.vertexShader.EntryPoint(),
			Buffers:    p.VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: p.fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        p.DepthCompare(),
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	}
}
