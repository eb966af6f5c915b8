package loader

import "io"

// loaderBackend is implemented by each model file format. Backends return flattened geometry;
// the Loader turns it into a model.Model and owns caching.
type loaderBackend interface {
	// Load decodes the file at path.
	//
	// Parameters:
	//   - path: the file to read
	//
	// Returns:
	//   - *meshData: the flattened geometry
	//   - error: error if the file cannot be decoded
	Load(path string) (*meshData, error)

	// LoadReader decodes a document from a stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if r yields the binary container
	//
	// Returns:
	//   - *meshData: the flattened geometry
	//   - error: error if the stream cannot be decoded
	LoadReader(r io.Reader, isGLB bool) (*meshData, error)
}
