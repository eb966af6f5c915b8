package material

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material identifier.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor sets the RGBA surface color.
//
// Parameters:
//   - color: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color mgl32.Vec4) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic sets the metallic factor.
//
// Parameters:
//   - metallic: the metallic factor in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness sets the roughness factor.
//
// Parameters:
//   - roughness: the roughness factor in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithPipelineKey sets the render pipeline key.
//
// Parameters:
//   - key: the pipeline key
//
// Returns:
//   - MaterialBuilderOption: a function that applies the pipeline key option to a material
func WithPipelineKey(key string) MaterialBuilderOption {
	return func(m *material) {
		m.pipelineKey = key
	}
}

// WithBindGroupProvider sets the bind group provider holding the material uniform.
//
// Parameters:
//   - provider: the bind group provider
//
// Returns:
//   - MaterialBuilderOption: a function that applies the bind group provider option to a material
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
