package camera

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

type CameraBuilderOption func(*cameraImpl)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFovY sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: vertical field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the vertical field of view
func WithFovY(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fovY = fov
		c.fovX = 0
	}
}

// WithFovX sets the camera's horizontal field of view in radians. The vertical field of view
// is derived from it as 2 * atan(tan(fovX / 2) / aspect).
//
// Parameters:
//   - fov: horizontal field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the horizontal field of view
func WithFovX(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fovX = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithReverseZ selects an infinite reverse-Z projection.
//
// Parameters:
//   - enabled: true for reverse-Z
//
// Returns:
//   - CameraBuilderOption: a function that sets the depth mapping
func WithReverseZ(enabled bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.reverseZ = enabled
	}
}

// WithController attaches a CameraController to the camera.
//
// Parameters:
//   - ctrl: the controller providing position and target
//
// Returns:
//   - CameraBuilderOption: a function that attaches the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}

// WithBindGroupProvider sets the camera's bind group provider.
//
// Parameters:
//   - provider: the bind group provider for the camera uniform
//
// Returns:
//   - CameraBuilderOption: a function that sets the provider
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.bindGroupProvider = provider
	}
}
