// Package main renders a grid of instanced meshes through the debug or lit shading pipeline
// with the software backend and writes the last frame as a PNG.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine"
	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/raster"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/internal/config"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	// Parse CLI flags
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.FileConfig(), true)
	defer logger.Sync()

	if path := config.SaveConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			logger.Log.Error("save config failed", zap.String("path", path), zap.Error(err))
			logger.Sync()
			os.Exit(1)
		}
		logger.Log.Info("config saved", zap.String("path", path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("preview failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("preview")
	start := time.Now()

	kind, err := shading.ParseKind(cfg.Render.Pipeline)
	if err != nil {
		return err
	}

	// ── Pipeline ────────────────────────────────────────────────────
	// A reverse-Z camera maps near to depth 1, so closer fragments have larger depth.
	var pipelineOpts []pipeline.PipelineBuilderOption
	if cfg.Render.ReverseZ {
		pipelineOpts = append(pipelineOpts, pipeline.WithDepthCompare(wgpu.CompareFunctionGreater))
	}
	sp, err := shading.New(kind, pipelineOpts...)
	if err != nil {
		return fmt.Errorf("build %s pipeline: %w", kind, err)
	}

	// ── Renderer ────────────────────────────────────────────────────
	r := renderer.NewRenderer(renderer.BackendTypeSoftware,
		renderer.WithSize(cfg.Render.Width, cfg.Render.Height),
		renderer.WithWorkers(cfg.Render.Workers),
		renderer.WithClearColor(mgl32.Vec4(cfg.Render.ClearColor)),
		renderer.WithReverseZ(cfg.Render.ReverseZ),
		renderer.WithPipeline(sp),
	)
	defer r.Release()

	// ── Camera ──────────────────────────────────────────────────────
	cam := camera.NewCamera(
		camera.WithFovX(mgl32.DegToRad(cfg.Camera.FovXDeg)),
		camera.WithAspect(float32(cfg.Render.Width)/float32(cfg.Render.Height)),
		camera.WithNear(cfg.Camera.Near),
		camera.WithFar(cfg.Camera.Far),
		camera.WithReverseZ(cfg.Render.ReverseZ),
		camera.WithController(camera.NewOrbitController(
			camera.WithRadius(cfg.Camera.Radius),
			camera.WithAzimuth(mgl32.DegToRad(cfg.Camera.AzimuthDeg)),
			camera.WithElevation(mgl32.DegToRad(cfg.Camera.ElevationDeg)),
		)),
	)

	// ── Scene ───────────────────────────────────────────────────────
	sun := light.NewLight(
		light.WithDirection(mgl32.Vec3(cfg.Lighting.SunDirection)),
		light.WithColor(mgl32.Vec3(cfg.Lighting.SunColor)),
		light.WithIntensity(cfg.Lighting.SunIntensity),
		light.WithEnabled(cfg.Lighting.SunEnabled),
	)
	prof := profiler.NewProfiler()
	sc := scene.NewScene("preview", cam, r,
		scene.WithPipelineKind(kind),
		scene.WithSun(sun),
		scene.WithAmbient(mgl32.Vec3(cfg.Lighting.Ambient)),
		scene.WithComputeWorkers(cfg.Render.Workers),
		scene.WithProfiler(prof),
	)
	defer sc.Release()

	mesh, err := loadMesh(cfg.Scene)
	if err != nil {
		return err
	}
	if err := sc.AddMesh(mesh); err != nil {
		return err
	}
	for i, c := range cfg.Scene.Colors {
		m := material.NewMaterial(
			material.WithName(materialName(i)),
			material.WithBaseColor(mgl32.Vec4(c)),
		)
		if err := sc.AddMaterial(m); err != nil {
			return err
		}
	}

	grid := buildGrid(cfg.Scene.GridSize, cfg.Scene.Spacing, len(cfg.Scene.Colors))
	ids := make([]scene.InstanceID, len(grid))
	for i, p := range grid {
		id, err := sc.AddInstance(mesh.Name(), p.material, p.transform)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	log.Info("scene built",
		zap.Stringer("pipeline", kind),
		zap.String("mesh", mesh.Name()),
		zap.Int("instances", sc.InstanceCount()),
		zap.Int("batches", sc.BatchCount()),
	)

	// ── Frames ──────────────────────────────────────────────────────
	tick := func(frame uint64, _ float32) error {
		if frame == 0 {
			return nil
		}
		if step := cfg.Camera.OrbitStepDeg; step != 0 {
			cam.Controller().Orbit(mgl32.DegToRad(step), 0)
		}
		if spin := cfg.Scene.SpinDeg; spin != 0 {
			rot := mgl32.QuatRotate(mgl32.DegToRad(spin*float32(frame)), mgl32.Vec3{0, 1, 0})
			for i, p := range grid {
				t := p.transform
				t.Rotation = rot
				if err := sc.UpdateInstance(ids[i], t); err != nil {
					return err
				}
			}
		}
		return nil
	}
	eng := engine.NewEngine(engine.WithScene(0, sc), engine.WithTickCallback(tick))
	bar := newProgressBar(cfg.Output.Progress, cfg.Render.Frames)
	if bar != nil {
		eng.SetTickCallback(withProgress(bar, tick))
	}
	err = eng.RunFrames(ctx, cfg.Render.Frames)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if err := writePNG(cfg.Output.PNG, r.Frame()); err != nil {
		return err
	}

	stats := r.Stats()
	log.Info("preview written",
		zap.String("path", cfg.Output.PNG),
		zap.Uint64("frames", sc.Frames()),
		zap.Int("draws", stats.Draws),
		zap.Int("primitives", stats.Primitives),
		zap.Int("rejected", stats.Rejected),
		zap.Int("fragments", stats.Fragments),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// newProgressBar returns a frame counter on stderr, or nil when disabled, when stderr is not a
// terminal, or when there is only one frame.
func newProgressBar(enabled bool, frames int) *progressbar.ProgressBar {
	if !enabled || frames < 2 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(frames,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// withProgress advances bar once per completed frame before delegating to tick.
func withProgress(bar *progressbar.ProgressBar, tick engine.TickFunc) engine.TickFunc {
	return func(frame uint64, dt float32) error {
		if err := bar.Set(int(frame)); err != nil {
			return err
		}
		return tick(frame, dt)
	}
}

// loadMesh returns the configured glTF mesh, or the unit cube when none is set.
func loadMesh(cfg config.SceneConfig) (model.Model, error) {
	if cfg.MeshPath == "" {
		return model.NewCube("cube"), nil
	}
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithFitRadius(cfg.MeshFitRadius))
	return l.Load(cfg.MeshPath)
}

// writePNG encodes the framebuffer, clamping every channel to [0, 1].
func writePNG(path string, fb *raster.Framebuffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
