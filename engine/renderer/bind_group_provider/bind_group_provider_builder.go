package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithMesh stages mesh vertex and index data on the provider.
//
// Parameters:
//   - vertexData: the serialized vertex buffer
//   - indexData: the serialized little-endian uint32 index buffer
//   - indexCount: the number of indices to draw
//
// Returns:
//   - BindGroupProviderOption: a function that sets the mesh buffers for this provider
func WithMesh(vertexData, indexData []byte, indexCount int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffer = vertexData
		p.indexBuffer = indexData
		p.indexCount = indexCount
	}
}

// WithBuffer pre-populates the contents of one binding. Allocate replaces it.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - data: the buffer contents
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, data []byte) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = data
	}
}
