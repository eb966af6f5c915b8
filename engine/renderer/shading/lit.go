package shading

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

type litPipeline struct {
	pipeline pipeline.Pipeline
}

var _ ShadingPipeline = &litPipeline{}

// NewLitPipeline builds the lit pipeline: group 0 scene, group 1 instance table, group 2
// material.
//
// Parameters:
//   - opts: pipeline options, e.g. pipeline.WithDepthCompare for reverse-Z
//
// Returns:
//   - ShadingPipeline: the lit pipeline
//   - error: if the embedded WGSL fails to parse or disagrees with the Go GPU structs
func NewLitPipeline(opts ...pipeline.PipelineBuilderOption) (ShadingPipeline, error) {
	p, err := buildPipeline(LitPipelineKey, litVertSource, litFragSource, opts)
	if err != nil {
		return nil, err
	}
	if err := validateLayouts(p, []layoutCheck{
		{shader.ShaderTypeVertex, "SceneUniform", light.GPUSceneUniform{}},
		{shader.ShaderTypeVertex, "InstanceTable", model.GPUInstanceTable{}},
		{shader.ShaderTypeFragment, "MaterialUniform", material.GPUMaterialUniform{}},
	}); err != nil {
		return nil, err
	}
	return &litPipeline{pipeline: p}, nil
}

func (l *litPipeline) Kind() Kind {
	return KindLit
}

func (l *litPipeline) Key() string {
	return LitPipelineKey
}

func (l *litPipeline) Pipeline() pipeline.Pipeline {
	return l.pipeline
}

func (l *litPipeline) BindGroupCount() int {
	return l.pipeline.BindGroupCount()
}

func (l *litPipeline) Bind(groups []bind_group_provider.BindGroupProvider) (Program, error) {
	bufs, err := readGroups(l.pipeline, groups)
	if err != nil {
		return nil, err
	}
	prog := &litProgram{}
	if err := prog.scene.Unmarshal(bufs[GroupScene]); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", LitPipelineKey, ErrBindGroupMismatch, err)
	}
	if err := prog.instances.Unmarshal(bufs[GroupInstance]); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", LitPipelineKey, ErrBindGroupMismatch, err)
	}
	if err := prog.material.Unmarshal(bufs[GroupMaterial]); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", LitPipelineKey, ErrBindGroupMismatch, err)
	}
	prog.viewProj = prog.scene.ViewProj
	return prog, nil
}

// litProgram holds the decoded uniforms of one lit draw.
type litProgram struct {
	scene     light.GPUSceneUniform
	instances model.GPUInstanceTable
	material  material.GPUMaterialUniform
	viewProj  mgl32.Mat4
}

func (p *litProgram) Vertex(v model.GPUVertex, instance uint32) VertexOutput {
	return TransformLit(p.viewProj, p.instances.At(instance), v)
}

func (p *litProgram) Fragment(in VertexOutput) mgl32.Vec4 {
	return LitFragment(in, p.scene, p.material)
}
