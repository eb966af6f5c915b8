package model

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertices is an option builder that sets the vertex stream of the Model.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertices option to a model
func WithVertices(vertices []GPUVertex) ModelBuilderOption {
	return func(m *model) {
		m.vertices = vertices
	}
}

// WithIndices is an option builder that sets the triangle list indices of the Model.
//
// Parameters:
//   - indices: three indices per triangle
//
// Returns:
//   - ModelBuilderOption: a function that applies the indices option to a model
func WithIndices(indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.indices = indices
	}
}

// WithMeshProvider is an option builder that sets the mesh BindGroupProvider of the Model.
//
// Parameters:
//   - provider: the provider holding uploaded vertex and index buffers
//
// Returns:
//   - ModelBuilderOption: a function that applies the mesh provider option to a model
func WithMeshProvider(provider bind_group_provider.BindGroupProvider) ModelBuilderOption {
	return func(m *model) {
		m.meshProvider = provider
	}
}

// WithBoundingRadius is an option builder that overrides the derived bounding radius.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}
