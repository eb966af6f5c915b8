package loader

import (
	"io"

	"go.uber.org/zap"
)

// gltfLoaderBackend reads .gltf and .glb documents.
type gltfLoaderBackend struct {
	log *zap.Logger
}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend(log *zap.Logger) *gltfLoaderBackend {
	return &gltfLoaderBackend{log: log}
}

func (b *gltfLoaderBackend) Load(path string) (*meshData, error) {
	p := &gltfParser{}
	if err := p.parseFile(path); err != nil {
		return nil, err
	}
	return newGLTFMeshExtractor(p, b.log).extract()
}

func (b *gltfLoaderBackend) LoadReader(r io.Reader, isGLB bool) (*meshData, error) {
	p := &gltfParser{}
	if err := p.parseReader(r, isGLB); err != nil {
		return nil, err
	}
	return newGLTFMeshExtractor(p, b.log).extract()
}
