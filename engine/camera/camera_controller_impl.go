package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32 // horizontal angle around Y axis
	elevation float32 // vertical angle from horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32
}

var _ CameraController = &cameraControllerImpl{}

// NewOrbitController creates an orbit CameraController circling its target on a sphere.
// Defaults: target at the origin, radius 10, azimuth 0, elevation 30 degrees.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - CameraController: the orbit controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:    10.0,
		azimuth:   0.0,
		elevation: float32(math.Pi / 6),

		minRadius:    0.5,
		maxRadius:    2000.0,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
	}

	for _, option := range options {
		option(cc)
	}

	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition places the eye on the sphere around the target; must hold mu.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation = mgl32.Clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = mgl32.Clamp(cc.radius-delta, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = mgl32.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = azimuth
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = mgl32.Clamp(elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}
