package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective creates a right-handed perspective projection matrix mapping view-space depth
// into the WebGPU clip range [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range and
// cannot be used with a WebGPU depth attachment.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// InfiniteReversePerspective creates a right-handed perspective projection with an infinite far
// plane and reversed depth: the near plane maps to depth 1 and infinity maps to depth 0.
// Pair it with a Greater depth compare and a depth clear value of 0.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func InfiniteReversePerspective(fovY, aspect, near float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[11] = -1.0
	out[14] = near
	return out
}

// FovYFromX converts a horizontal field of view into the vertical field of view that covers
// the same horizontal extent at the given aspect ratio.
//
// Parameters:
//   - fovX: horizontal field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//
// Returns:
//   - float32: vertical field of view in radians
func FovYFromX(fovX, aspect float32) float32 {
	return 2 * float32(math.Atan(math.Tan(float64(fovX)/2)/float64(aspect)))
}

// ModelMatrix constructs a model matrix from a translation, an orientation quaternion and a
// per-axis scale, composed as T * R * S.
//
// Parameters:
//   - pos: translation in world space
//   - rot: orientation (normalized quaternion)
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func ModelMatrix(pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
