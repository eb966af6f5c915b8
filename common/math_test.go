package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-5

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.5), float32(50)
	proj := Perspective(float32(math.Pi/3), 1.5, near, far)

	tests := []struct {
		name  string
		z     float32
		depth float32
	}{
		{"near plane", -near, 0},
		{"far plane", -far, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := proj.Mul4x1(mgl32.Vec4{0, 0, tt.z, 1})
			got := clip.Z() / clip.W()
			if !mgl32.FloatEqualThreshold(got, tt.depth, epsilon) {
				t.Errorf("depth at z=%v: got %v, want %v", tt.z, got, tt.depth)
			}
		})
	}
}

func TestInfiniteReversePerspective(t *testing.T) {
	near := float32(0.1)
	proj := InfiniteReversePerspective(float32(math.Pi/2), 1, near)

	clip := proj.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	if got := clip.Z() / clip.W(); !mgl32.FloatEqualThreshold(got, 1, epsilon) {
		t.Errorf("near plane depth: got %v, want 1", got)
	}

	clip = proj.Mul4x1(mgl32.Vec4{0, 0, -1e6, 1})
	if got := clip.Z() / clip.W(); got < 0 || got > 1e-6 {
		t.Errorf("distant depth: got %v, want ~0", got)
	}
}

func TestFovYFromX(t *testing.T) {
	fovX := float32(math.Pi / 2)
	if got := FovYFromX(fovX, 1); !mgl32.FloatEqualThreshold(got, fovX, epsilon) {
		t.Errorf("square aspect: got %v, want %v", got, fovX)
	}

	// a wider viewport needs a narrower vertical angle
	if got := FovYFromX(fovX, 2); got >= fovX {
		t.Errorf("wide aspect: got %v, want < %v", got, fovX)
	}
}

func TestModelMatrixComposition(t *testing.T) {
	pos := mgl32.Vec3{1, 2, 3}
	scale := mgl32.Vec3{2, 2, 2}
	rot := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})

	m := ModelMatrix(pos, rot, scale)

	// +X scaled by 2, rotated 90 degrees about Y lands on -Z, then translated
	got := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	want := mgl32.Vec3{1, 2, 1}
	if !got.ApproxEqualThreshold(want, epsilon) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "b", "c"); got != "b" {
		t.Errorf("Coalesce = %q, want b", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("Coalesce of zeros = %d, want 0", got)
	}
}
