package shading

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Pipeline keys of the two shading pipelines.
const (
	DebugPipelineKey = "debug_normal"
	LitPipelineKey   = "lit"
)

// Bind group indices shared by both pipelines.
const (
	GroupScene    = 0
	GroupInstance = 1
	GroupMaterial = 2
)

// ErrBindGroupMismatch is returned when the providers handed to Bind do not satisfy the
// pipeline's bind group layouts.
var ErrBindGroupMismatch = errors.New("bind group mismatch")

var (
	//go:embed assets/debug_normal_vert.wgsl
	debugNormalVertSource string

	//go:embed assets/debug_normal_frag.wgsl
	debugNormalFragSource string

	//go:embed assets/lit_vert.wgsl
	litVertSource string

	//go:embed assets/lit_frag.wgsl
	litFragSource string
)

// Kind identifies a shading pipeline implementation.
type Kind int

const (
	// KindDebugNormal colors geometry by the absolute value of its object-space normal.
	KindDebugNormal Kind = iota + 1

	// KindLit shades with ambient light plus one directional light.
	KindLit
)

// String returns the pipeline key of the kind.
func (k Kind) String() string {
	switch k {
	case KindDebugNormal:
		return DebugPipelineKey
	case KindLit:
		return LitPipelineKey
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a pipeline name to its Kind. Both "debug" and "debug_normal" select the
// debug pipeline.
//
// Parameters:
//   - name: the pipeline name
//
// Returns:
//   - Kind: the matching kind
//   - error: if the name is not a known pipeline
func ParseKind(name string) (Kind, error) {
	switch name {
	case "debug", DebugPipelineKey:
		return KindDebugNormal, nil
	case LitPipelineKey:
		return KindLit, nil
	default:
		return 0, fmt.Errorf("unknown shading pipeline %q", name)
	}
}

// Program is a shading pipeline with its bind groups resolved. Both stages are pure functions
// of their inputs and the bound uniforms, so a Program may be invoked from many goroutines.
type Program interface {
	// Vertex runs the vertex stage for one vertex of one instance.
	//
	// Parameters:
	//   - v: the object-space vertex
	//   - instance: the 0-based instance index, must be below model.MaxInstances
	//
	// Returns:
	//   - VertexOutput: clip position and varyings
	Vertex(v model.GPUVertex, instance uint32) VertexOutput

	// Fragment runs the fragment stage on interpolated varyings.
	//
	// Parameters:
	//   - in: the interpolated vertex output
	//
	// Returns:
	//   - mgl32.Vec4: the fragment color
	Fragment(in VertexOutput) mgl32.Vec4
}

// ShadingPipeline is one of the two shading modes. The host selects one per draw call and binds
// its groups in index order.
type ShadingPipeline interface {
	// Kind returns which shading mode this is.
	Kind() Kind

	// Key returns the pipeline key used to register the pipeline with a renderer.
	Key() string

	// Pipeline returns the render pipeline configuration built from the embedded WGSL.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline configuration
	Pipeline() pipeline.Pipeline

	// BindGroupCount returns how many bind groups a draw must supply.
	BindGroupCount() int

	// Bind resolves the pipeline against bound providers. groups[i] is bound at group i.
	//
	// Parameters:
	//   - groups: one provider per bind group, in group order
	//
	// Returns:
	//   - Program: the executable stages
	//   - error: ErrBindGroupMismatch if a provider is missing or too small for its layout
	Bind(groups []bind_group_provider.BindGroupProvider) (Program, error)
}

// New builds the shading pipeline of a kind.
//
// Parameters:
//   - kind: the shading mode
//   - opts: pipeline options applied after the shaders are attached
//
// Returns:
//   - ShadingPipeline: the pipeline
//   - error: if the embedded WGSL fails to parse or disagrees with the Go GPU structs
func New(kind Kind, opts ...pipeline.PipelineBuilderOption) (ShadingPipeline, error) {
	switch kind {
	case KindDebugNormal:
		return NewDebugPipeline(opts...)
	case KindLit:
		return NewLitPipeline(opts...)
	default:
		return nil, fmt.Errorf("unknown shading kind %v", kind)
	}
}

// buildPipeline parses both stages and assembles the render pipeline.
func buildPipeline(key, vertSource, fragSource string, opts []pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	vs, err := shader.NewShaderFromSource(key+"_vert", shader.ShaderTypeVertex, vertSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShaderFromSource(key+"_frag", shader.ShaderTypeFragment, fragSource)
	if err != nil {
		return nil, err
	}
	all := append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	}, opts...)
	return pipeline.NewPipeline(key, all...)
}

// layoutCheck pairs a WGSL struct name with its Go mirror.
type layoutCheck struct {
	stage  shader.ShaderType
	name   string
	mirror any
}

// validateLayouts compares the WGSL structs the pipeline binds with their Go mirrors, and the
// vertex buffer layout with model.GPUVertex.
func validateLayouts(p pipeline.Pipeline, checks []layoutCheck) error {
	for _, c := range checks {
		layout, ok := p.Shader(c.stage).StructLayout(c.name)
		if !ok {
			return fmt.Errorf("%s: %w: struct %s not declared in %s stage", p.PipelineKey(), pipeline.ErrLayoutMismatch, c.name, c.stage)
		}
		if err := pipeline.ValidateLayout(layout, c.mirror); err != nil {
			return fmt.Errorf("%s: %w", p.PipelineKey(), err)
		}
	}
	vbl := p.VertexBufferLayouts()
	if len(vbl) != 1 {
		return fmt.Errorf("%s: %w: expected one vertex buffer, got %d", p.PipelineKey(), pipeline.ErrLayoutMismatch, len(vbl))
	}
	if err := pipeline.ValidateVertexLayout(vbl[0], model.GPUVertex{}); err != nil {
		return fmt.Errorf("%s: %w", p.PipelineKey(), err)
	}
	return nil
}

// readGroups checks the providers against the pipeline layouts and returns binding 0 of every
// group.
func readGroups(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider) ([][]byte, error) {
	want := p.BindGroupCount()
	if len(groups) != want {
		return nil, fmt.Errorf("%s: %w: %d bind groups supplied, pipeline uses %d",
			p.PipelineKey(), ErrBindGroupMismatch, len(groups), want)
	}

	out := make([][]byte, want)
	for g := range want {
		if groups[g] == nil {
			return nil, fmt.Errorf("%s: %w: no provider at group %d", p.PipelineKey(), ErrBindGroupMismatch, g)
		}
		for _, entry := range p.BindGroupLayout(g).Entries {
			size := groups[g].BufferSize(int(entry.Binding))
			if size < entry.Buffer.MinBindingSize {
				return nil, fmt.Errorf("%s: %w: provider %q group %d binding %d holds %d bytes, layout needs %d",
					p.PipelineKey(), ErrBindGroupMismatch, groups[g].Label(), g, entry.Binding, size, entry.Buffer.MinBindingSize)
			}
		}
		buf, err := groups[g].Buffer(0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", p.PipelineKey(), ErrBindGroupMismatch, err)
		}
		out[g] = buf
	}
	return out, nil
}
