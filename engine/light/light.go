package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// defaultDirection points straight down and replaces degenerate (zero-length) directions.
var defaultDirection = mgl32.Vec3{0, -1, 0}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.RWMutex

	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	enabled   bool
}

// Light is a directional sun light. The direction is the way the light travels, so a surface
// facing the light has a normal opposite to it. A disabled light marshals with zero intensity.
type Light interface {
	// Direction returns the normalized travel direction of the light.
	//
	// Returns:
	//   - mgl32.Vec3: unit direction
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier.
	Intensity() float32

	// Enabled returns whether this light contributes to shading.
	Enabled() bool

	// SetDirection sets the travel direction. The vector is normalized; a zero vector
	// leaves the light pointing straight down.
	//
	// Parameters:
	//   - dir: the direction, any non-zero length
	SetDirection(dir mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	SetColor(color mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetEnabled toggles the light.
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a directional light. Defaults: pointing straight down, white, intensity 1,
// enabled.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - Light: the new light
func NewLight(options ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.RWMutex{},
		direction: defaultDirection,
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1,
		enabled:   true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

func (l *lightImpl) SetDirection(dir mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalizeDirection(dir)
}

func (l *lightImpl) SetColor(color mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func normalizeDirection(dir mgl32.Vec3) mgl32.Vec3 {
	if dir.Len() < 1e-8 {
		return defaultDirection
	}
	return dir.Normalize()
}
