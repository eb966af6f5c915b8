package scene

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithPipelineKind selects the shading pipeline every batch is drawn with. Defaults to
// shading.KindLit. If the renderer already has a pipeline registered under the kind's key,
// that pipeline is used as is.
//
// Parameters:
//   - kind: the shading mode
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineKind(kind shading.Kind) SceneBuilderOption {
	return func(s *scene) {
		s.kind = kind
	}
}

// WithPipelineOptions passes options to the shading pipeline when the scene has to build it,
// for example pipeline.WithDepthCompare(wgpu.CompareFunctionGreater) for a reverse-Z camera.
//
// Parameters:
//   - opts: pipeline options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.pipelineOptions = append(s.pipelineOptions, opts...)
	}
}

// WithSun sets the directional light used by the lit pipeline.
func WithSun(sun light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.sun = sun
	}
}

// WithAmbient sets the ambient light color. Defaults to (0.1, 0.1, 0.1).
func WithAmbient(ambient mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.ambient = ambient
	}
}

// WithProfiler ticks the profiler with the renderer's statistics after every rendered frame.
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.prof = p
	}
}

// WithComputeWorkers sets the number of worker goroutines used to rebuild instance tables
// during Render. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}
