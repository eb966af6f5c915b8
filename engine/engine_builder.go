package engine

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are rendered in ascending key order.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithTickCallback sets the function called before every frame.
//
// Parameters:
//   - callback: receives the zero-based frame index and the seconds since the previous frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback TickFunc) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}
