package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a functional option for configuring a Light during construction.
type LightBuilderOption func(*lightImpl)

// WithDirection sets the travel direction of the light. The vector is normalized.
//
// Parameters:
//   - dir: the direction, any non-zero length
//
// Returns:
//   - LightBuilderOption: a function that sets the direction
func WithDirection(dir mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalizeDirection(dir)
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - color: the color as (r, g, b)
//
// Returns:
//   - LightBuilderOption: a function that sets the color
func WithColor(color mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = color
	}
}

// WithIntensity sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity
//
// Returns:
//   - LightBuilderOption: a function that sets the intensity
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithEnabled sets whether the light contributes to shading.
//
// Parameters:
//   - enabled: the enabled state
//
// Returns:
//   - LightBuilderOption: a function that sets the enabled state
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}
