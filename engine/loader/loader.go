package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	log       *zap.Logger
	fitRadius float32

	modelCache map[string]model.Model

	backend loaderBackend
}

// Loader imports static meshes from model files and caches them by path or name. Only
// triangle geometry is kept: positions, normals and the first UV set.
type Loader interface {
	// Load imports a model file and caches the result. A cached model is returned as is.
	//
	// Parameters:
	//   - path: the file path to the model file (.gltf or .glb)
	//
	// Returns:
	//   - model.Model: the loaded model, named after the file without its extension
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a model from a stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key and model name; an empty name falls back to the glTF scene name
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// Get retrieves a cached model by key. Returns nil if not found.
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		log:        logger.Named("loader"),
		modelCache: make(map[string]model.Model),
	}
	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.log)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("loader: unsupported model format %q", ext)
	}
	if l.backend == nil {
		return nil, fmt.Errorf("loader: no backend configured")
	}

	data, err := l.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.store(path, name, data), nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("loader: no backend configured")
	}

	data, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	return l.store(name, name, data), nil
}

// store builds the model and caches it. A concurrent load of the same key keeps the first
// stored model.
func (l *loader) store(key, name string, data *meshData) model.Model {
	if l.fitRadius > 0 {
		fitToRadius(data.vertices, l.fitRadius)
	}
	m := model.NewModel(
		model.WithName(common.Coalesce(name, data.name, "mesh")),
		model.WithVertices(data.vertices),
		model.WithIndices(data.indices),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		return cached
	}
	l.modelCache[key] = m
	l.log.Info("model loaded",
		zap.String("key", key),
		zap.String("scene", data.name),
		zap.Int("vertices", len(data.vertices)),
		zap.Int("triangles", len(data.indices)/3),
		zap.Float32("radius", m.BoundingRadius()),
	)
	return m
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// fitToRadius centres the vertices on their bounding box and scales them so the furthest one
// sits at radius. Normals are unaffected by uniform scale.
func fitToRadius(vertices []model.GPUVertex, radius float32) {
	if len(vertices) == 0 {
		return
	}
	lo, hi := mgl32.Vec3(vertices[0].Position), mgl32.Vec3(vertices[0].Position)
	for _, v := range vertices[1:] {
		for c := range 3 {
			lo[c] = min(lo[c], v.Position[c])
			hi[c] = max(hi[c], v.Position[c])
		}
	}
	centre := lo.Add(hi).Mul(0.5)

	var far float32
	for i := range vertices {
		p := mgl32.Vec3(vertices[i].Position).Sub(centre)
		vertices[i].Position = [3]float32(p)
		far = max(far, p.Len())
	}
	if far < 1e-8 {
		return
	}
	s := radius / far
	for i := range vertices {
		vertices[i].Position = [3]float32(mgl32.Vec3(vertices[i].Position).Mul(s))
	}
}
