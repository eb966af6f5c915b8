package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newTestCamera(reverse bool) Camera {
	ctrl := NewOrbitController(WithRadius(5), WithElevation(0), WithAzimuth(0))
	return NewCamera(
		WithController(ctrl),
		WithNear(1),
		WithFar(10),
		WithReverseZ(reverse),
	)
}

func clipDepth(vp mgl32.Mat4, p mgl32.Vec3) float32 {
	clip := vp.Mul4x1(p.Vec4(1))
	return clip.Z() / clip.W()
}

func TestOrbitControllerPosition(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(5), WithElevation(0))
	if got := ctrl.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 0, 5}, 1e-5) {
		t.Errorf("Position() = %v, want (0, 0, 5)", got)
	}

	ctrl.SetAzimuth(math.Pi / 2)
	if got := ctrl.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{5, 0, 0}, 1e-5) {
		t.Errorf("Position() after quarter turn = %v, want (5, 0, 0)", got)
	}

	ctrl.SetTarget(mgl32.Vec3{1, 2, 3})
	if got := ctrl.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{6, 2, 3}, 1e-5) {
		t.Errorf("Position() after retarget = %v, want (6, 2, 3)", got)
	}
}

func TestOrbitControllerClamps(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(5), WithRadiusBounds(2, 8), WithElevationBounds(-0.5, 0.5))

	ctrl.Zoom(100)
	if got := ctrl.Radius(); got != 2 {
		t.Errorf("Radius() after zoom in = %v, want 2", got)
	}
	ctrl.Zoom(-100)
	if got := ctrl.Radius(); got != 8 {
		t.Errorf("Radius() after zoom out = %v, want 8", got)
	}
	ctrl.Orbit(0, 3)
	if got := ctrl.Elevation(); got != 0.5 {
		t.Errorf("Elevation() after orbit = %v, want 0.5", got)
	}
	ctrl.SetElevation(-3)
	if got := ctrl.Elevation(); got != -0.5 {
		t.Errorf("Elevation() after set = %v, want -0.5", got)
	}
}

func TestFiniteProjectionDepth(t *testing.T) {
	cam := newTestCamera(false)
	vp := cam.ViewProjectionMatrix()

	if got := clipDepth(vp, mgl32.Vec3{0, 0, 4}); !mgl32.FloatEqualThreshold(got, 0, 1e-5) {
		t.Errorf("depth at near plane = %v, want 0", got)
	}
	if got := clipDepth(vp, mgl32.Vec3{0, 0, -5}); !mgl32.FloatEqualThreshold(got, 1, 1e-5) {
		t.Errorf("depth at far plane = %v, want 1", got)
	}
	if got := clipDepth(vp, mgl32.Vec3{}); !mgl32.FloatEqualThreshold(got, 8.0/9.0, 1e-5) {
		t.Errorf("depth at target = %v, want 8/9", got)
	}
}

func TestReverseZProjectionDepth(t *testing.T) {
	cam := newTestCamera(true)
	if !cam.ReverseZ() {
		t.Fatal("ReverseZ() = false")
	}
	vp := cam.ViewProjectionMatrix()

	if got := clipDepth(vp, mgl32.Vec3{0, 0, 4}); !mgl32.FloatEqualThreshold(got, 1, 1e-5) {
		t.Errorf("depth at near plane = %v, want 1", got)
	}
	if got := clipDepth(vp, mgl32.Vec3{}); !mgl32.FloatEqualThreshold(got, 0.2, 1e-5) {
		t.Errorf("depth at target = %v, want 0.2", got)
	}
	if got := clipDepth(vp, mgl32.Vec3{0, 0, -1e6}); got <= 0 || got > 1e-5 {
		t.Errorf("depth far away = %v, want just above 0", got)
	}
}

func TestHorizontalFov(t *testing.T) {
	cam := NewCamera(WithFovX(math.Pi/2), WithAspect(2))
	want := float32(2 * math.Atan(0.5))
	if got := cam.FovY(); !mgl32.FloatEqualThreshold(got, want, 1e-6) {
		t.Errorf("FovY() = %v, want %v", got, want)
	}

	cam.SetAspect(1)
	if got := cam.FovY(); !mgl32.FloatEqualThreshold(got, math.Pi/2, 1e-6) {
		t.Errorf("FovY() at aspect 1 = %v, want pi/2", got)
	}

	cam.SetFovY(1)
	cam.SetAspect(3)
	if got := cam.FovY(); got != 1 {
		t.Errorf("FovY() after SetFovY = %v, want 1", got)
	}
}

func TestCameraUniform(t *testing.T) {
	cam := newTestCamera(false)
	u := cam.Uniform()
	buf := u.Marshal()
	if len(buf) != 64 {
		t.Fatalf("len(Marshal()) = %d, want 64", len(buf))
	}

	var decoded GPUCameraUniform
	if err := decoded.Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if mgl32.Mat4(decoded.ViewProj) != cam.ViewProjectionMatrix() {
		t.Error("decoded view-projection differs from camera matrix")
	}
	if err := decoded.Unmarshal(buf[:10]); err == nil {
		t.Error("Unmarshal of short buffer: got nil error")
	}
}

func TestCameraProviderLabels(t *testing.T) {
	a := NewCamera()
	b := NewCamera()
	if a.BindGroupProvider().Label() == b.BindGroupProvider().Label() {
		t.Errorf("cameras share provider label %q", a.BindGroupProvider().Label())
	}
}
