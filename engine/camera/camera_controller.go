package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController positions a camera. The camera asks its controller for an eye position and
// a look-at target each time its matrices are rebuilt.
type CameraController interface {
	// Position returns the eye position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// SetTarget moves the look-at target and re-derives the eye position.
	//
	// Parameters:
	//   - target: the new look-at target
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the eye around the target. Elevation is clamped to the controller bounds.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye toward (positive delta) or away from the target. The radius is
	// clamped to the controller bounds.
	//
	// Parameters:
	//   - delta: distance to move toward the target
	Zoom(delta float32)

	// Radius returns the distance from the eye to the target.
	Radius() float32

	// SetRadius sets the eye distance, clamped to the controller bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle around the Y axis in radians.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle above the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the controller bounds.
	SetElevation(elevation float32)
}
