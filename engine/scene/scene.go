package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var (
	// ErrUnknownMesh is returned when an instance names a mesh that was never added.
	ErrUnknownMesh = errors.New("unknown mesh")

	// ErrUnknownMaterial is returned when an instance names a material that was never added.
	ErrUnknownMaterial = errors.New("unknown material")

	// ErrUnknownInstance is returned for an InstanceID the scene does not hold.
	ErrUnknownInstance = errors.New("unknown instance")
)

// InstanceID identifies one instance across all batches of a scene.
type InstanceID uint64

// batchKey groups instances that share a mesh and a material into one draw call.
type batchKey struct {
	mesh     string
	material string
}

// batch is one draw call: a mesh, a material, and the instance table holding every instance
// drawn with them.
type batch struct {
	key       batchKey
	mesh      model.Model
	material  material.Material
	instances model.InstanceSet
	provider  bind_group_provider.BindGroupProvider

	// pending transforms are composed into model matrices during the next Render
	pending map[model.InstanceHandle]model.Transform
}

type instanceRef struct {
	batch  *batch
	handle model.InstanceHandle
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu  *sync.RWMutex
	log *zap.Logger

	name   string
	active bool

	cam  camera.Camera
	r    renderer.Renderer
	prof *profiler.Profiler

	kind            shading.Kind
	pipelineOptions []pipeline.PipelineBuilderOption
	sp              shading.ShadingPipeline
	sun             light.Light
	ambient         mgl32.Vec3

	// group 0: the camera's provider for the debug pipeline, sceneBGP for the lit pipeline
	sceneBGP bind_group_provider.BindGroupProvider

	meshes    map[string]model.Model
	materials map[string]material.Material
	batches   []*batch
	batchMap  map[batchKey]*batch
	instances map[InstanceID]instanceRef
	nextID    InstanceID

	// Worker pool for the per-frame matrix rebuild.
	// Created once in NewScene and reused across frames.
	computePool    worker.DynamicWorkerPool
	computeWorkers int

	// Reusable slices to avoid per-frame allocation.
	writePool          []bind_group_provider.BufferWrite
	drawBindGroupsPool []bind_group_provider.BindGroupProvider

	frames uint64
}

// Scene batches instances by mesh and material and renders them through one shading pipeline.
//
// Each batch owns an instance table. Instances are placed with a Transform; their model
// matrices are rebuilt on the worker pool during Render and only dirty tables are uploaded.
// Every batch is then drawn with instance range [0, count).
type Scene interface {
	// Name returns the scene's name.
	Name() string

	// SetName sets the scene's name.
	SetName(name string)

	// Active reports whether Render draws anything.
	Active() bool

	// SetActive enables or disables rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the renderer the scene draws with.
	Renderer() renderer.Renderer

	// Kind returns the shading pipeline the scene draws with.
	Kind() shading.Kind

	// Sun returns the directional light used by the lit pipeline, or nil.
	Sun() light.Light

	// SetSun replaces the directional light. A nil sun contributes no diffuse light.
	SetSun(sun light.Light)

	// Ambient returns the ambient light color.
	Ambient() mgl32.Vec3

	// SetAmbient sets the ambient light color.
	SetAmbient(ambient mgl32.Vec3)

	// AddMesh registers a mesh and uploads its vertex and index buffers. Adding a mesh whose
	// name is already registered is a no-op.
	//
	// Parameters:
	//   - m: the mesh, identified by its name
	//
	// Returns:
	//   - error: if the mesh has no name or its buffers are invalid
	AddMesh(m model.Model) error

	// AddMaterial registers a material and uploads its uniform. Adding a material whose name is
	// already registered is a no-op.
	//
	// Parameters:
	//   - m: the material, identified by its name
	//
	// Returns:
	//   - error: if the material has no name or its bind group cannot be initialized
	AddMaterial(m material.Material) error

	// AddInstance places a new instance of a mesh drawn with a material.
	//
	// Parameters:
	//   - mesh: the registered mesh name
	//   - mat: the registered material name
	//   - t: the instance's placement
	//
	// Returns:
	//   - InstanceID: an identifier for later updates and removal
	//   - error: ErrUnknownMesh, ErrUnknownMaterial, or model.ErrInstanceSetFull
	AddInstance(mesh, mat string, t model.Transform) (InstanceID, error)

	// UpdateInstance moves an instance. The new model matrix is built during the next Render.
	//
	// Parameters:
	//   - id: the instance
	//   - t: the new placement
	//
	// Returns:
	//   - error: ErrUnknownInstance if id is not in the scene
	UpdateInstance(id InstanceID, t model.Transform) error

	// RemoveInstance deletes an instance.
	//
	// Returns:
	//   - error: ErrUnknownInstance if id is not in the scene
	RemoveInstance(id InstanceID) error

	// InstanceCount returns the number of instances across all batches.
	InstanceCount() int

	// BatchCount returns the number of (mesh, material) batches, including empty ones.
	BatchCount() int

	// DrawCalls rebuilds the scene uniform and dirty instance tables, then issues one draw call
	// per non-empty batch into the renderer's open frame. The caller owns BeginFrame and
	// EndFrame, so several scenes sharing a renderer composite into one frame in call order.
	// An inactive scene draws nothing.
	//
	// Returns:
	//   - error: the first failing upload or draw call
	DrawCalls() error

	// Render draws the scene alone: BeginFrame, DrawCalls, then EndFrame.
	//
	// Returns:
	//   - error: the first failing upload or draw call
	Render() error

	// Frames returns the number of frames rendered.
	Frames() uint64

	// Release stops the worker pool.
	Release()
}

var _ Scene = &scene{}

// NewScene creates a scene drawing through the renderer with the given camera. The shading
// pipeline defaults to the lit pipeline and is registered with the renderer if missing.
//
// Panics if cam or r is nil, or if the shading pipeline cannot be built.
//
// Parameters:
//   - name: the scene's name
//   - cam: the camera supplying the view-projection matrix
//   - r: the renderer to draw with
//   - options: functional options applied after defaults
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:             &sync.RWMutex{},
		log:            logger.Named("scene"),
		name:           name,
		active:         true,
		cam:            cam,
		r:              r,
		kind:           shading.KindLit,
		ambient:        mgl32.Vec3{0.1, 0.1, 0.1},
		meshes:         make(map[string]model.Model),
		materials:      make(map[string]material.Material),
		batchMap:       make(map[batchKey]*batch),
		instances:      make(map[InstanceID]instanceRef),
		nextID:         1,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, opt := range options {
		opt(s)
	}

	s.sp = r.Pipeline(s.kind.String())
	if s.sp == nil {
		sp, err := shading.New(s.kind, s.pipelineOptions...)
		if err != nil {
			panic(fmt.Sprintf("scene: build %s pipeline: %v", s.kind, err))
		}
		if err := r.RegisterPipelines(sp); err != nil {
			panic(fmt.Sprintf("scene: register %s pipeline: %v", s.kind, err))
		}
		s.sp = sp
	}

	s.sceneBGP = cam.BindGroupProvider()
	if s.kind == shading.KindLit {
		s.sceneBGP = bind_group_provider.NewBindGroupProvider("scene_" + name)
	}
	if err := r.InitBindGroup(s.sceneBGP, s.sp.Pipeline().BindGroupLayout(shading.GroupScene), nil); err != nil {
		panic(fmt.Sprintf("scene: init group %d: %v", shading.GroupScene, err))
	}

	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)

	s.log.Debug("scene created",
		zap.String("scene", name),
		zap.Stringer("pipeline", s.kind),
		zap.Int("workers", s.computeWorkers),
	)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Kind() shading.Kind {
	return s.kind
}

func (s *scene) Sun() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sun
}

func (s *scene) SetSun(sun light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sun = sun
}

func (s *scene) Ambient() mgl32.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *scene) SetAmbient(ambient mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = ambient
}

func (s *scene) AddMesh(m model.Model) error {
	if m == nil || m.Name() == "" {
		return errors.New("scene: mesh must be non-nil and named")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.meshes[m.Name()]; exists {
		return nil
	}
	mp := m.MeshProvider()
	if mp == nil {
		mp = bind_group_provider.NewBindGroupProvider("mesh_" + m.Name())
		m.SetMeshProvider(mp)
	}
	if err := s.r.InitMeshBuffers(mp, m.VertexData(), m.IndexData(), m.IndexCount()); err != nil {
		return fmt.Errorf("scene %q: mesh %q: %w", s.name, m.Name(), err)
	}
	s.meshes[m.Name()] = m
	return nil
}

func (s *scene) AddMaterial(m material.Material) error {
	if m == nil || m.Name() == "" {
		return errors.New("scene: material must be non-nil and named")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.materials[m.Name()]; exists {
		return nil
	}
	m.SetPipelineKey(s.sp.Key())

	// only the lit pipeline binds the material uniform
	if s.sp.BindGroupCount() > shading.GroupMaterial {
		bgp := m.BindGroupProvider()
		if err := s.r.InitBindGroup(bgp, s.sp.Pipeline().BindGroupLayout(shading.GroupMaterial), nil); err != nil {
			return fmt.Errorf("scene %q: material %q: %w", s.name, m.Name(), err)
		}
		u := m.Uniform()
		if err := s.r.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: bgp, Binding: 0, Data: u.Marshal()},
		}); err != nil {
			return fmt.Errorf("scene %q: material %q: %w", s.name, m.Name(), err)
		}
	}
	s.materials[m.Name()] = m
	return nil
}

func (s *scene) AddInstance(mesh, mat string, t model.Transform) (InstanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.batchFor(batchKey{mesh: mesh, material: mat})
	if err != nil {
		return 0, err
	}
	h, err := b.instances.Add(t.ModelMatrix())
	if err != nil {
		return 0, fmt.Errorf("scene %q: batch %s/%s: %w", s.name, mesh, mat, err)
	}

	id := s.nextID
	s.nextID++
	s.instances[id] = instanceRef{batch: b, handle: h}
	return id, nil
}

// batchFor returns the batch for a key, creating it on first use; must hold mu.
func (s *scene) batchFor(key batchKey) (*batch, error) {
	if b, ok := s.batchMap[key]; ok {
		return b, nil
	}
	mesh, ok := s.meshes[key.mesh]
	if !ok {
		return nil, fmt.Errorf("scene %q: %w %q", s.name, ErrUnknownMesh, key.mesh)
	}
	mat, ok := s.materials[key.material]
	if !ok {
		return nil, fmt.Errorf("scene %q: %w %q", s.name, ErrUnknownMaterial, key.material)
	}

	b := &batch{
		key:       key,
		mesh:      mesh,
		material:  mat,
		instances: model.NewInstanceSet(model.MaxInstances),
		provider:  bind_group_provider.NewBindGroupProvider("instances_" + key.mesh + "_" + key.material),
		pending:   make(map[model.InstanceHandle]model.Transform),
	}
	if err := s.r.InitBindGroup(b.provider, s.sp.Pipeline().BindGroupLayout(shading.GroupInstance), nil); err != nil {
		return nil, fmt.Errorf("scene %q: batch %s/%s: %w", s.name, key.mesh, key.material, err)
	}
	s.batchMap[key] = b
	s.batches = append(s.batches, b)
	s.log.Debug("batch created", zap.String("mesh", key.mesh), zap.String("material", key.material))
	return b, nil
}

func (s *scene) UpdateInstance(id InstanceID, t model.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("scene %q: %w %d", s.name, ErrUnknownInstance, id)
	}
	ref.batch.pending[ref.handle] = t
	return nil
}

func (s *scene) RemoveInstance(id InstanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("scene %q: %w %d", s.name, ErrUnknownInstance, id)
	}
	if err := ref.batch.instances.Remove(ref.handle); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	delete(ref.batch.pending, ref.handle)
	delete(s.instances, id)
	return nil
}

func (s *scene) InstanceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

func (s *scene) BatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}

func (s *scene) Render() error {
	if !s.Active() {
		return nil
	}
	if err := s.r.BeginFrame(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	if err := s.DrawCalls(); err != nil {
		return errors.Join(err, s.r.EndFrame())
	}
	if err := s.r.EndFrame(); err != nil {
		return fmt.Errorf("scene %q: %w", s.name, err)
	}
	return nil
}

func (s *scene) DrawCalls() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	s.cam.Update()
	writes := s.writePool[:0]
	writes = append(writes, bind_group_provider.BufferWrite{
		Provider: s.sceneBGP,
		Binding:  0,
		Data:     s.sceneUniformData(),
	})

	// Phase 1: parallel matrix rebuild. Each dirty batch composes its pending transforms and
	// serializes the live range of its table on the compute pool. A WaitGroup provides the
	// per-frame barrier.
	staged := make([][]byte, len(s.batches))
	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		taskErr error
	)
	for i, b := range s.batches {
		if len(b.pending) == 0 && !b.instances.Dirty() {
			continue
		}
		wg.Add(1)
		idx, bCap := i, b
		s.computePool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				data, err := bCap.rebuild()
				if err != nil {
					errMu.Lock()
					taskErr = errors.Join(taskErr, err)
					errMu.Unlock()
					return nil, err
				}
				staged[idx] = data
				return nil, nil
			},
		})
	}
	wg.Wait()
	if taskErr != nil {
		return fmt.Errorf("scene %q: rebuild instances: %w", s.name, taskErr)
	}

	// Phase 2: coalesced upload of the scene uniform and every rebuilt table.
	for i, data := range staged {
		if len(data) == 0 {
			continue
		}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: s.batches[i].provider, Binding: 0, Data: data})
	}
	s.writePool = writes
	if err := s.r.WriteBuffers(writes); err != nil {
		return fmt.Errorf("scene %q: upload: %w", s.name, err)
	}

	// Phase 3: one draw call per non-empty batch.
	before := s.r.Stats()
	for _, b := range s.batches {
		n := b.instances.Len()
		if n == 0 {
			continue
		}
		groups := append(s.drawBindGroupsPool[:0], s.sceneBGP, b.provider)
		if s.sp.BindGroupCount() > shading.GroupMaterial {
			groups = append(groups, b.material.BindGroupProvider())
		}
		s.drawBindGroupsPool = groups

		if err := s.r.DrawCall(s.sp.Key(), b.mesh.MeshProvider(), uint32(n), groups); err != nil {
			return fmt.Errorf("draw call failed for batch %s/%s in scene %q: %w", b.key.mesh, b.key.material, s.name, err)
		}
	}

	s.frames++
	if s.prof != nil {
		// The renderer's counters span every scene drawn into the frame so far.
		s.prof.Tick(s.r.Stats().Sub(before))
	}
	return nil
}

// sceneUniformData serializes the group 0 uniform for the scene's pipeline; must hold mu.
func (s *scene) sceneUniformData() []byte {
	if s.kind == shading.KindLit {
		u := light.NewSceneUniform(s.cam.ViewProjectionMatrix(), s.ambient, s.sun)
		return u.Marshal()
	}
	u := s.cam.Uniform()
	return u.Marshal()
}

// rebuild applies pending transforms to the instance table and returns the serialized live
// range. It only touches the batch it is called on.
func (b *batch) rebuild() ([]byte, error) {
	for h, t := range b.pending {
		if err := b.instances.Update(h, t.ModelMatrix()); err != nil {
			return nil, fmt.Errorf("batch %s/%s: %w", b.key.mesh, b.key.material, err)
		}
	}
	clear(b.pending)

	table, n := b.instances.Snapshot()
	b.instances.ClearDirty()
	return table.MarshalRange(n), nil
}

func (s *scene) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

func (s *scene) Release() {
	s.computePool.Stop()
}
