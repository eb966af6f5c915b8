package material

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	baseColor         mgl32.Vec4
	metallic          float32
	roughness         float32
	pipelineKey       string
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material holds the surface properties bound at group 2 of the lit pipeline.
//
// Surface properties are fixed at construction. The pipeline key and bind group provider are
// mutable so they can be configured when the material is registered with a scene.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the RGBA surface color. The lit pipeline multiplies lighting by the
	// rgb components and writes the alpha component through unchanged.
	//
	// Returns:
	//   - mgl32.Vec4: the base color
	BaseColor() mgl32.Vec4

	// Metallic retrieves the metallic factor. Carried in the uniform but not used by the
	// shading model.
	Metallic() float32

	// Roughness retrieves the roughness factor. Carried in the uniform but not used by the
	// shading model.
	Roughness() float32

	// Uniform builds the GPU uniform for this material.
	//
	// Returns:
	//   - GPUMaterialUniform: the uniform ready for Marshal
	Uniform() GPUMaterialUniform

	// PipelineKey retrieves the key identifying the render pipeline this material uses.
	PipelineKey() string

	// BindGroupProvider retrieves the bind group provider holding the material uniform.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetPipelineKey sets the render pipeline key for this material.
	SetPipelineKey(key string)

	// SetBindGroupProvider sets the bind group provider for this material.
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a new Material. Defaults: white, metallic 0, roughness 1.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: mgl32.Vec4{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.bindGroupProvider == nil {
		m.bindGroupProvider = bind_group_provider.NewBindGroupProvider("material_" + m.name)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() mgl32.Vec4 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Uniform() GPUMaterialUniform {
	return GPUMaterialUniform{
		Color:  m.baseColor,
		Params: [4]float32{m.metallic, m.roughness, 0, 0},
	}
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}
