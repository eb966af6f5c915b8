package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const vertexSource = `//@oxy:include scene
//@oxy:include instance_table
//@oxy:include vertex
//@oxy:group 0 0 storage_uniform scene scene
//@oxy:group 1 0 storage_uniform instances instance_table

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) normal: vec3<f32>,
}

@vertex
fn vs_main(in: VertexInput, @builtin(instance_index) instance_idx: u32) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = scene.view_proj * instances.models[instance_idx] * vec4<f32>(in.position, 1.0);
    out.normal = in.normal;
    return out;
}
`

const fragmentSource = `//@oxy:include scene
//@oxy:include material
//@oxy:group 0 0 storage_uniform scene scene
//@oxy:group 2 0 storage_uniform surface material

@fragment
fn fs_main(@location(0) normal: vec3<f32>) -> @location(0) vec4<f32> {
    return surface.color * scene.ambient_light;
}
`

func newTestPipeline(t *testing.T, opts ...PipelineBuilderOption) Pipeline {
	t.Helper()
	vs, err := shader.NewShaderFromSource("vs", shader.ShaderTypeVertex, vertexSource)
	if err != nil {
		t.Fatalf("vertex shader: %v", err)
	}
	fs, err := shader.NewShaderFromSource("fs", shader.ShaderTypeFragment, fragmentSource)
	if err != nil {
		t.Fatalf("fragment shader: %v", err)
	}
	p, err := NewPipeline("test", append([]PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs)}, opts...)...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestMergedLayouts(t *testing.T) {
	p := newTestPipeline(t)

	if got := p.BindGroupCount(); got != 3 {
		t.Errorf("BindGroupCount() = %d, want 3", got)
	}
	scene := p.BindGroupLayout(0).Entries
	if len(scene) != 1 {
		t.Fatalf("group 0 entries = %d, want 1", len(scene))
	}
	if want := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment; scene[0].Visibility != want {
		t.Errorf("group 0 visibility = %v, want vertex|fragment", scene[0].Visibility)
	}
	if got := p.BindGroupLayout(1).Entries[0].Visibility; got != wgpu.ShaderStageVertex {
		t.Errorf("group 1 visibility = %v, want vertex", got)
	}
	if got := p.BindGroupLayout(2).Entries[0].Buffer.MinBindingSize; got != 32 {
		t.Errorf("group 2 size = %d, want 32", got)
	}
}

func TestMergeRejectsConflicts(t *testing.T) {
	entry := func(size uint64, stage wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
		return map[int]wgpu.BindGroupLayoutDescriptor{0: {Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: stage,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: size},
		}}}}
	}
	_, err := MergeBindGroupLayouts(entry(64, wgpu.ShaderStageVertex), entry(112, wgpu.ShaderStageFragment))
	if !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("MergeBindGroupLayouts: got %v, want ErrLayoutMismatch", err)
	}
}

func TestNewPipelineRequiresShaders(t *testing.T) {
	if _, err := NewPipeline("empty"); err == nil {
		t.Error("NewPipeline without shaders: got nil error")
	}
}

func TestDepthState(t *testing.T) {
	p := newTestPipeline(t)
	if got := p.DepthCompare(); got != wgpu.CompareFunctionLess {
		t.Errorf("default DepthCompare() = %v, want Less", got)
	}

	p = newTestPipeline(t, WithDepthCompare(wgpu.CompareFunctionGreater))
	if got := p.DepthCompare(); got != wgpu.CompareFunctionGreater {
		t.Errorf("DepthCompare() = %v, want Greater", got)
	}

	p = newTestPipeline(t, WithDepthTestEnabled(false))
	if got := p.DepthCompare(); got != wgpu.CompareFunctionAlways {
		t.Errorf("DepthCompare() with test disabled = %v, want Always", got)
	}
}

func TestRenderDescriptor(t *testing.T) {
	p := newTestPipeline(t)
	desc := p.RenderDescriptor(nil, nil, nil, wgpu.TextureFormatRGBA8Unorm)

	if desc.Vertex.EntryPoint != "vs_main" || desc.Fragment.EntryPoint != "fs_main" {
		t.Errorf("entry points = %q/%q, want vs_main/fs_main", desc.Vertex.EntryPoint, desc.Fragment.EntryPoint)
	}
	if len(desc.Vertex.Buffers) != 1 || desc.Vertex.Buffers[0].ArrayStride != 32 {
		t.Errorf("vertex buffers = %+v, want one 32-byte stride layout", desc.Vertex.Buffers)
	}
	if desc.Fragment.Targets[0].Blend != nil {
		t.Error("blend state set with blending disabled")
	}
	if desc.Primitive.CullMode != wgpu.CullModeNone {
		t.Errorf("CullMode = %v, want None", desc.Primitive.CullMode)
	}
}

func TestHostStructsMatchWGSL(t *testing.T) {
	p := newTestPipeline(t)
	vs := p.Shader(shader.ShaderTypeVertex)
	fs := p.Shader(shader.ShaderTypeFragment)

	cases := []struct {
		s    shader.Shader
		name string
		host any
	}{
		{vs, "SceneUniform", light.GPUSceneUniform{}},
		{vs, "InstanceTable", &model.GPUInstanceTable{}},
		{fs, "MaterialUniform", material.GPUMaterialUniform{}},
	}
	for _, tc := range cases {
		layout, ok := tc.s.StructLayout(tc.name)
		if !ok {
			t.Errorf("%s: layout missing", tc.name)
			continue
		}
		if err := ValidateLayout(layout, tc.host); err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}

	if err := ValidateVertexLayout(p.VertexBufferLayouts()[0], model.GPUVertex{}); err != nil {
		t.Errorf("vertex layout: %v", err)
	}
}

func TestValidateLayoutDetectsDrift(t *testing.T) {
	p := newTestPipeline(t)
	layout, _ := p.Shader(shader.ShaderTypeVertex).StructLayout("SceneUniform")

	type packed struct {
		ViewProj     [16]float32
		AmbientLight [3]float32
		SunDir       [4]float32
		SunColor     [4]float32
	}
	if err := ValidateLayout(layout, packed{}); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("ValidateLayout of misaligned struct: got %v, want ErrLayoutMismatch", err)
	}
	if err := ValidateLayout(layout, 42); !errors.Is(err, ErrLayoutMismatch) {
		t.Errorf("ValidateLayout of non-struct: got %v, want ErrLayoutMismatch", err)
	}
}
