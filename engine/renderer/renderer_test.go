package renderer

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/go-gl/mathgl/mgl32"
)

// facing rotates the XZ plane into the XY plane at NDC depth z, so with an identity
// view-projection it fills the viewport.
func facing(z float32) mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, z).Mul4(mgl32.HomogRotate3DX(math.Pi / 2))
}

type fixture struct {
	r         Renderer
	debug     shading.ShadingPipeline
	lit       shading.ShadingPipeline
	mesh      bind_group_provider.BindGroupProvider
	camera    bind_group_provider.BindGroupProvider
	scene     bind_group_provider.BindGroupProvider
	instances bind_group_provider.BindGroupProvider
	material  bind_group_provider.BindGroupProvider
}

func newFixture(t *testing.T, options ...RendererBuilderOption) *fixture {
	t.Helper()
	debug, err := shading.NewDebugPipeline()
	if err != nil {
		t.Fatal(err)
	}
	lit, err := shading.NewLitPipeline()
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		r:         NewRenderer(BackendTypeSoftware, options...),
		debug:     debug,
		lit:       lit,
		mesh:      bind_group_provider.NewBindGroupProvider("plane"),
		camera:    bind_group_provider.NewBindGroupProvider("camera"),
		scene:     bind_group_provider.NewBindGroupProvider("scene"),
		instances: bind_group_provider.NewBindGroupProvider("instances"),
		material:  bind_group_provider.NewBindGroupProvider("material"),
	}
	t.Cleanup(f.r.Release)

	if err := f.r.RegisterPipelines(debug, lit); err != nil {
		t.Fatal(err)
	}
	plane := model.NewPlane("plane", 2)
	if err := f.r.InitMeshBuffers(f.mesh, plane.VertexData(), plane.IndexData(), plane.IndexCount()); err != nil {
		t.Fatal(err)
	}
	for _, bg := range []struct {
		p     bind_group_provider.BindGroupProvider
		sp    shading.ShadingPipeline
		group int
	}{
		{f.camera, debug, shading.GroupScene},
		{f.scene, lit, shading.GroupScene},
		{f.instances, lit, shading.GroupInstance},
		{f.material, lit, shading.GroupMaterial},
	} {
		if err := f.r.InitBindGroup(bg.p, bg.sp.Pipeline().BindGroupLayout(bg.group), nil); err != nil {
			t.Fatal(err)
		}
	}

	cam := camera.GPUCameraUniform{ViewProj: mgl32.Ident4()}
	sun := light.NewLight(light.WithDirection(mgl32.Vec3{0, 0, -1}))
	scene := light.NewSceneUniform(mgl32.Ident4(), mgl32.Vec3{0.1, 0.1, 0.1}, sun)
	mat := material.GPUMaterialUniform{Color: [4]float32{1, 0, 0, 1}}
	if err := f.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: f.camera, Binding: 0, Data: cam.Marshal()},
		{Provider: f.scene, Binding: 0, Data: scene.Marshal()},
		{Provider: f.material, Binding: 0, Data: mat.Marshal()},
	}); err != nil {
		t.Fatal(err)
	}
	f.setInstances(t, facing(0.5))
	return f
}

func (f *fixture) setInstances(t *testing.T, models ...mgl32.Mat4) {
	t.Helper()
	var table model.GPUInstanceTable
	for i, m := range models {
		if err := table.Set(i, m); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: f.instances, Binding: 0, Data: table.MarshalRange(len(models))},
	}); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) draw(t *testing.T, key string, count uint32) {
	t.Helper()
	if err := f.r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	groups := []bind_group_provider.BindGroupProvider{f.camera, f.instances}
	if key == shading.LitPipelineKey {
		groups = []bind_group_provider.BindGroupProvider{f.scene, f.instances, f.material}
	}
	if err := f.r.DrawCall(key, f.mesh, count, groups); err != nil {
		t.Fatal(err)
	}
	if err := f.r.EndFrame(); err != nil {
		t.Fatal(err)
	}
}

func vec4Near(a, b mgl32.Vec4, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestDebugDraw(t *testing.T) {
	f := newFixture(t, WithSize(16, 16))
	f.draw(t, shading.DebugPipelineKey, 1)

	if got := f.r.Frame().At(8, 8); !vec4Near(got, mgl32.Vec4{0, 1, 0, 1}, 1e-5) {
		t.Errorf("center got %v, want |object normal| (0,1,0,1)", got)
	}
	if got := f.r.Frame().DepthAt(8, 8); mgl32.Abs(got-0.5) > 1e-5 {
		t.Errorf("center depth got %v, want 0.5", got)
	}
	stats := f.r.Stats()
	// pixels on the shared diagonal may be shaded by both triangles
	if stats.Draws != 1 || stats.VertexInvocations != 4 || stats.Primitives != 2 || stats.Fragments < 256 {
		t.Errorf("stats got %+v", stats)
	}
}

func TestLitDrawUnclamped(t *testing.T) {
	f := newFixture(t, WithSize(8, 8), WithWorkers(3))
	f.draw(t, shading.LitPipelineKey, 1)

	if got, want := f.r.Frame().At(4, 4), (mgl32.Vec4{1.1, 0, 0, 1}); !vec4Near(got, want, 1e-5) {
		t.Errorf("got %v, want %v", got, want)
	}
	if c := f.r.Frame().Image().NRGBAAt(4, 4); c.R != 255 || c.G != 0 || c.A != 255 {
		t.Errorf("image pixel got %+v, want clamped red", c)
	}
}

func TestInstancesDrawnInRange(t *testing.T) {
	f := newFixture(t, WithSize(16, 8), WithWorkers(4))
	left := mgl32.Translate3D(-0.5, 0, 0).Mul4(mgl32.Scale3D(0.5, 1, 1)).Mul4(facing(0.5))
	right := mgl32.Translate3D(0.5, 0, 0).Mul4(mgl32.Scale3D(0.5, 1, 1)).Mul4(facing(0.5))
	f.setInstances(t, left, right)

	f.draw(t, shading.DebugPipelineKey, 1)
	if got := f.r.Frame().At(12, 4); got != (mgl32.Vec4{}) {
		t.Errorf("instance 1 drawn with count 1: got %v", got)
	}
	if got := f.r.Frame().At(3, 4); !vec4Near(got, mgl32.Vec4{0, 1, 0, 1}, 1e-5) {
		t.Errorf("instance 0: got %v", got)
	}

	f.draw(t, shading.DebugPipelineKey, 2)
	if got := f.r.Frame().At(12, 4); !vec4Near(got, mgl32.Vec4{0, 1, 0, 1}, 1e-5) {
		t.Errorf("instance 1: got %v", got)
	}
	if got := f.r.Stats().Instances; got != 2 {
		t.Errorf("instances got %d, want 2", got)
	}

	f.draw(t, shading.DebugPipelineKey, 0)
	if got := f.r.Frame().At(3, 4); got != (mgl32.Vec4{}) {
		t.Errorf("zero instances: got %v, want clear color", got)
	}
}

func TestWorkerCountDoesNotChangeImage(t *testing.T) {
	a := newFixture(t, WithSize(20, 14), WithWorkers(1))
	b := newFixture(t, WithSize(20, 14), WithWorkers(5))
	models := []mgl32.Mat4{
		mgl32.Translate3D(-0.2, 0.1, 0).Mul4(mgl32.HomogRotate3DZ(0.4)).Mul4(facing(0.6)),
		mgl32.Translate3D(0.3, -0.2, 0).Mul4(mgl32.HomogRotate3DZ(-0.3)).Mul4(facing(0.4)),
	}
	a.setInstances(t, models...)
	b.setInstances(t, models...)
	a.draw(t, shading.LitPipelineKey, 2)
	b.draw(t, shading.LitPipelineKey, 2)

	for y := range 14 {
		for x := range 20 {
			if a.r.Frame().At(x, y) != b.r.Frame().At(x, y) {
				t.Fatalf("pixel (%d,%d) differs between 1 and 5 workers", x, y)
			}
		}
	}
}

func TestDrawCallValidation(t *testing.T) {
	f := newFixture(t, WithSize(4, 4))
	debugGroups := []bind_group_provider.BindGroupProvider{f.camera, f.instances}

	if err := f.r.DrawCall(shading.DebugPipelineKey, f.mesh, 1, debugGroups); !errors.Is(err, ErrFrameNotBegun) {
		t.Errorf("draw outside frame: got %v, want ErrFrameNotBegun", err)
	}
	if err := f.r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := f.r.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("nested BeginFrame: got %v, want ErrFrameInProgress", err)
	}
	if err := f.r.DrawCall("pbr", f.mesh, 1, debugGroups); !errors.Is(err, ErrUnknownPipeline) {
		t.Errorf("unknown pipeline: got %v", err)
	}
	if err := f.r.DrawCall(shading.DebugPipelineKey, f.mesh, model.MaxInstances+1, debugGroups); !errors.Is(err, ErrInstanceCountExceeded) {
		t.Errorf("1025 instances: got %v", err)
	}
	if err := f.r.DrawCall(shading.DebugPipelineKey, f.mesh, model.MaxInstances, debugGroups); err != nil {
		t.Errorf("1024 instances: %v", err)
	}
	if err := f.r.DrawCall(shading.LitPipelineKey, f.mesh, 1, debugGroups); !errors.Is(err, ErrBindGroupMismatch) {
		t.Errorf("debug groups on lit pipeline: got %v", err)
	}
	if err := f.r.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := f.r.EndFrame(); !errors.Is(err, ErrFrameNotBegun) {
		t.Errorf("double EndFrame: got %v", err)
	}
}

func TestReverseZClearsDepthToZero(t *testing.T) {
	r := NewRenderer(BackendTypeSoftware, WithSize(2, 2), WithReverseZ(true), WithClearColor(mgl32.Vec4{0, 0, 1, 1}))
	defer r.Release()
	if err := r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if got := r.Frame().DepthAt(1, 1); got != 0 {
		t.Errorf("depth got %v, want 0", got)
	}
	if got := r.Frame().At(0, 0); got != (mgl32.Vec4{0, 0, 1, 1}) {
		t.Errorf("clear color got %v", got)
	}
	if !r.ReverseZ() {
		t.Error("ReverseZ() = false")
	}
}

func TestInitMeshBuffersRejectsBadIndices(t *testing.T) {
	r := NewRenderer(BackendTypeSoftware, WithSize(2, 2))
	defer r.Release()
	verts := model.MarshalVertices(make([]model.GPUVertex, 3))
	bad := []byte{0, 0, 0, 0, 1, 0, 0, 0, 3, 0, 0, 0}
	if err := r.InitMeshBuffers(bind_group_provider.NewBindGroupProvider("tri"), verts, bad, 3); err == nil {
		t.Error("expected an error for index 3 of 3 vertices")
	}
	if err := r.InitMeshBuffers(bind_group_provider.NewBindGroupProvider("tri"), verts[:40], nil, 0); err == nil {
		t.Error("expected an error for a partial vertex")
	}
}

func TestRegisterPipelinesSkipsDuplicates(t *testing.T) {
	first, err := shading.NewDebugPipeline()
	if err != nil {
		t.Fatal(err)
	}
	second, err := shading.NewDebugPipeline()
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(BackendTypeSoftware, WithPipeline(first))
	defer r.Release()
	if err := r.RegisterPipelines(second); err != nil {
		t.Fatal(err)
	}
	if r.Pipeline(shading.DebugPipelineKey) != first {
		t.Error("registered pipeline was replaced")
	}
	if len(r.Pipelines()) != 1 {
		t.Errorf("pipelines got %d, want 1", len(r.Pipelines()))
	}
	if err := r.RegisterPipelines(nil); err == nil {
		t.Error("expected an error for a nil pipeline")
	}
}

func TestResize(t *testing.T) {
	r := NewRenderer(BackendTypeSoftware, WithSize(0, -3))
	t.Cleanup(r.Release)
	if w, h := r.Size(); w != 640 || h != 480 {
		t.Fatalf("invalid WithSize gave %dx%d, want the 640x480 default", w, h)
	}

	for _, size := range [][2]int{{0, 10}, {10, 0}, {-1, -1}} {
		if err := r.Resize(size[0], size[1]); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Resize(%d, %d) = %v, want ErrInvalidSize", size[0], size[1], err)
		}
	}
	if w, h := r.Size(); w != 640 || h != 480 {
		t.Errorf("failed resize changed size to %dx%d", w, h)
	}

	if err := r.Resize(12, 6); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if fb := r.Frame(); fb.Width() != 12 || fb.Height() != 6 {
		t.Errorf("frame is %dx%d, want 12x6", fb.Width(), fb.Height())
	}
}
