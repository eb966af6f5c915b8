package shading

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

type debugPipeline struct {
	pipeline pipeline.Pipeline
}

var _ ShadingPipeline = &debugPipeline{}

// NewDebugPipeline builds the debug normal pipeline: group 0 camera, group 1 instance table.
//
// Parameters:
//   - opts: pipeline options, e.g. pipeline.WithDepthCompare for reverse-Z
//
// Returns:
//   - ShadingPipeline: the debug pipeline
//   - error: if the embedded WGSL fails to parse or disagrees with the Go GPU structs
func NewDebugPipeline(opts ...pipeline.PipelineBuilderOption) (ShadingPipeline, error) {
	p, err := buildPipeline(DebugPipelineKey, debugNormalVertSource, debugNormalFragSource, opts)
	if err != nil {
		return nil, err
	}
	if err := validateLayouts(p, []layoutCheck{
		{shader.ShaderTypeVertex, "CameraUniform", camera.GPUCameraUniform{}},
		{shader.ShaderTypeVertex, "InstanceTable", model.GPUInstanceTable{}},
	}); err != nil {
		return nil, err
	}
	return &debugPipeline{pipeline: p}, nil
}

func (d *debugPipeline) Kind() Kind {
	return KindDebugNormal
}

func (d *debugPipeline) Key() string {
	return DebugPipelineKey
}

func (d *debugPipeline) Pipeline() pipeline.Pipeline {
	return d.pipeline
}

func (d *debugPipeline) BindGroupCount() int {
	return d.pipeline.BindGroupCount()
}

func (d *debugPipeline) Bind(groups []bind_group_provider.BindGroupProvider) (Program, error) {
	bufs, err := readGroups(d.pipeline, groups)
	if err != nil {
		return nil, err
	}
	prog := &debugProgram{}
	if err := prog.camera.Unmarshal(bufs[GroupScene]); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", DebugPipelineKey, ErrBindGroupMismatch, err)
	}
	if err := prog.instances.Unmarshal(bufs[GroupInstance]); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", DebugPipelineKey, ErrBindGroupMismatch, err)
	}
	prog.viewProj = prog.camera.ViewProj
	return prog, nil
}

// debugProgram holds the decoded uniforms of one debug draw.
type debugProgram struct {
	camera    camera.GPUCameraUniform
	instances model.GPUInstanceTable
	viewProj  mgl32.Mat4
}

func (p *debugProgram) Vertex(v model.GPUVertex, instance uint32) VertexOutput {
	return TransformDebug(p.viewProj, p.instances.At(instance), v)
}

func (p *debugProgram) Fragment(in VertexOutput) mgl32.Vec4 {
	return DebugNormalFragment(in)
}
