package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const size = 32

// newTestScene looks at the origin from (0, 0, 5) and registers a unit cube plus a red and a
// green material.
func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(size, size), renderer.WithWorkers(2))
	t.Cleanup(r.Release)

	cam := camera.NewCamera(camera.WithController(camera.NewOrbitController(
		camera.WithRadius(5),
		camera.WithElevation(0),
	)))
	s := NewScene("test", cam, r, append([]SceneBuilderOption{WithComputeWorkers(2)}, options...)...)
	t.Cleanup(s.Release)

	if err := s.AddMesh(model.NewCube("cube")); err != nil {
		t.Fatal(err)
	}
	for _, m := range []material.Material{
		material.NewMaterial(material.WithName("red"), material.WithBaseColor(mgl32.Vec4{1, 0, 0, 1})),
		material.NewMaterial(material.WithName("green"), material.WithBaseColor(mgl32.Vec4{0, 1, 0, 1})),
	} {
		if err := s.AddMaterial(m); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func render(t *testing.T, s Scene) {
	t.Helper()
	if err := s.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func center(s Scene) mgl32.Vec4 {
	return s.Renderer().Frame().At(size/2, size/2)
}

func near(a, b mgl32.Vec4) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > 1e-4 {
			return false
		}
	}
	return true
}

func TestRenderDebugCube(t *testing.T) {
	s := newTestScene(t, WithPipelineKind(shading.KindDebugNormal))
	if _, err := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	render(t, s)

	if got := center(s); !near(got, mgl32.Vec4{0, 0, 1, 1}) {
		t.Errorf("center = %v, want front face normal (0,0,1,1)", got)
	}
	if got := s.Renderer().Frame().At(0, 0); got != (mgl32.Vec4{}) {
		t.Errorf("corner = %v, want clear color", got)
	}
}

func TestRenderLitCube(t *testing.T) {
	sun := light.NewLight(light.WithDirection(mgl32.Vec3{0, 0, -1}))
	s := newTestScene(t, WithSun(sun), WithAmbient(mgl32.Vec3{0.1, 0.1, 0.1}))
	if _, err := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	render(t, s)

	if got := center(s); !near(got, mgl32.Vec4{1.1, 0, 0, 1}) {
		t.Errorf("center = %v, want (1.1,0,0,1)", got)
	}
}

func TestRenderBatchesByMeshAndMaterial(t *testing.T) {
	s := newTestScene(t)
	for _, inst := range []struct {
		mat string
		x   float32
	}{
		{"red", -2}, {"red", 2}, {"green", 0},
	} {
		if _, err := s.AddInstance("cube", inst.mat, model.NewTransform(mgl32.Vec3{inst.x, 0, 0})); err != nil {
			t.Fatal(err)
		}
	}
	render(t, s)

	if got := s.BatchCount(); got != 2 {
		t.Errorf("BatchCount() = %d, want 2", got)
	}
	stats := s.Renderer().Stats()
	if stats.Draws != 2 || stats.Instances != 3 {
		t.Errorf("stats = %+v, want 2 draws of 3 instances", stats)
	}
	if got := center(s); got[1] <= 0 || got[0] != 0 {
		t.Errorf("center = %v, want the green cube", got)
	}
}

func TestUpdateInstanceAppliedOnRender(t *testing.T) {
	s := newTestScene(t, WithPipelineKind(shading.KindDebugNormal))
	id, err := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{}))
	if err != nil {
		t.Fatal(err)
	}
	render(t, s)

	if err := s.UpdateInstance(id, model.NewTransform(mgl32.Vec3{100, 0, 0})); err != nil {
		t.Fatal(err)
	}
	render(t, s)
	if got := center(s); got != (mgl32.Vec4{}) {
		t.Errorf("center = %v after moving the cube away, want clear color", got)
	}
}

func TestRemoveInstance(t *testing.T) {
	s := newTestScene(t, WithPipelineKind(shading.KindDebugNormal))
	keep, _ := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{100, 0, 0}))
	drop, _ := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{}))
	render(t, s)

	if err := s.RemoveInstance(drop); err != nil {
		t.Fatal(err)
	}
	render(t, s)
	if got := center(s); got != (mgl32.Vec4{}) {
		t.Errorf("center = %v after removal, want clear color", got)
	}
	if got := s.InstanceCount(); got != 1 {
		t.Errorf("InstanceCount() = %d, want 1", got)
	}

	if err := s.RemoveInstance(keep); err != nil {
		t.Fatal(err)
	}
	render(t, s)
	if got := s.Renderer().Stats().Draws; got != 0 {
		t.Errorf("Draws = %d for an empty batch, want 0", got)
	}
}

func TestSceneErrors(t *testing.T) {
	s := newTestScene(t)

	if _, err := s.AddInstance("sphere", "red", model.NewTransform(mgl32.Vec3{})); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("unknown mesh: got %v", err)
	}
	if _, err := s.AddInstance("cube", "blue", model.NewTransform(mgl32.Vec3{})); !errors.Is(err, ErrUnknownMaterial) {
		t.Errorf("unknown material: got %v", err)
	}
	if err := s.UpdateInstance(99, model.NewTransform(mgl32.Vec3{})); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("UpdateInstance: got %v", err)
	}
	if err := s.RemoveInstance(99); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("RemoveInstance: got %v", err)
	}
	if err := s.AddMesh(model.NewModel()); err == nil {
		t.Error("AddMesh(unnamed): got nil error")
	}
}

func TestInactiveSceneSkipsRender(t *testing.T) {
	s := newTestScene(t, WithActive(false))
	render(t, s)
	if got := s.Frames(); got != 0 {
		t.Errorf("Frames() = %d, want 0", got)
	}
}

func TestRenderTicksProfiler(t *testing.T) {
	p := profiler.NewProfiler()
	s := newTestScene(t, WithProfiler(p))
	render(t, s)
	render(t, s)
	if got := p.TotalFrames(); got != 2 {
		t.Errorf("TotalFrames() = %d, want 2", got)
	}
	if got := s.Frames(); got != 2 {
		t.Errorf("Frames() = %d, want 2", got)
	}
}

func TestNewScenePanicsWithoutCamera(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewScene(nil camera) did not panic")
		}
	}()
	NewScene("x", nil, renderer.NewRenderer(renderer.BackendTypeSoftware))
}

func TestRenderReverseZ(t *testing.T) {
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(size, size), renderer.WithReverseZ(true))
	t.Cleanup(r.Release)
	cam := camera.NewCamera(
		camera.WithReverseZ(true),
		camera.WithController(camera.NewOrbitController(camera.WithRadius(5), camera.WithElevation(0))),
	)
	s := NewScene("rz", cam, r,
		WithPipelineKind(shading.KindDebugNormal),
		WithPipelineOptions(pipeline.WithDepthCompare(wgpu.CompareFunctionGreater)),
	)
	t.Cleanup(s.Release)

	if got := r.Pipeline(shading.DebugPipelineKey).Pipeline().DepthCompare(); got != wgpu.CompareFunctionGreater {
		t.Fatalf("DepthCompare() = %v, want Greater", got)
	}
	if err := s.AddMesh(model.NewCube("cube")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMaterial(material.NewMaterial(material.WithName("white"))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInstance("cube", "white", model.NewTransform(mgl32.Vec3{})); err != nil {
		t.Fatal(err)
	}
	render(t, s)

	if got := center(s); !near(got, mgl32.Vec4{0, 0, 1, 1}) {
		t.Errorf("center = %v, want the front face with a Greater compare", got)
	}
}

func TestPipelineFixedFunctionState(t *testing.T) {
	tests := []struct {
		name string
		opt  pipeline.PipelineBuilderOption
		want mgl32.Vec4
	}{
		{"write mask", pipeline.WithWriteMask(wgpu.ColorWriteMaskRed | wgpu.ColorWriteMaskAlpha), mgl32.Vec4{0, 0, 0, 1}},
		{"point list", pipeline.WithTopology(wgpu.PrimitiveTopologyPointList), mgl32.Vec4{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScene(t, WithPipelineKind(shading.KindDebugNormal), WithPipelineOptions(tt.opt))
			if _, err := s.AddInstance("cube", "red", model.NewTransform(mgl32.Vec3{})); err != nil {
				t.Fatal(err)
			}
			render(t, s)
			if got := center(s); !near(got, tt.want) {
				t.Errorf("center = %v, want %v", got, tt.want)
			}
		})
	}
}
