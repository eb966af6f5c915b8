package renderer

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline pre-registers a shading pipeline under its own key.
//
// Parameters:
//   - p: the pipeline to register
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p shading.ShadingPipeline) RendererBuilderOption {
	return func(r *renderer) {
		if p != nil {
			r.pipelineCache[p.Key()] = p
		}
	}
}

// WithSize sets the attachment size in pixels. Non-positive dimensions keep the default.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width = width
			r.height = height
		}
	}
}

// WithWorkers sets how many workers the software backend uses for vertex and raster work.
//
// Parameters:
//   - workers: the worker count, values below 1 mean 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the workers option to a renderer
func WithWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = max(workers, 1)
	}
}

// WithClearColor sets the color the frame is cleared to. The default is transparent black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c mgl32.Vec4) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithReverseZ clears depth to 0 instead of 1. Pipelines drawn into a reverse-Z frame should
// compare with wgpu.CompareFunctionGreater.
//
// Parameters:
//   - enabled: true for reverse-Z
//
// Returns:
//   - RendererBuilderOption: a function that applies the reverse-Z option to a renderer
func WithReverseZ(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.reverseZ = enabled
	}
}
