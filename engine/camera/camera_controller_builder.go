package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring an orbit CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: the eye distance
//
// Returns:
//   - CameraControllerOption: a function that sets the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle in radians.
//
// Parameters:
//   - azimuth: angle around the Y axis
//
// Returns:
//   - CameraControllerOption: a function that sets the azimuth
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle in radians.
//
// Parameters:
//   - elevation: angle above the horizontal plane
//
// Returns:
//   - CameraControllerOption: a function that sets the elevation
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at target.
//
// Parameters:
//   - target: the point to orbit around
//
// Returns:
//   - CameraControllerOption: a function that sets the target
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - min: the closest allowed distance
//   - max: the farthest allowed distance
//
// Returns:
//   - CameraControllerOption: a function that sets the radius bounds
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithElevationBounds sets the vertical angle limits in radians.
//
// Parameters:
//   - min: the lowest allowed elevation
//   - max: the highest allowed elevation
//
// Returns:
//   - CameraControllerOption: a function that sets the elevation bounds
func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation = min
		cc.maxElevation = max
	}
}
