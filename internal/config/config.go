// Package config handles preview configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shading"
	"github.com/Carmen-Shannon/oxy-shade/internal/logger"
)

// Config holds all preview settings.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Render   RenderConfig   `yaml:"render"`
	Camera   CameraConfig   `yaml:"camera"`
	Lighting LightingConfig `yaml:"lighting"`
	Scene    SceneConfig    `yaml:"scene"`
	Output   OutputConfig   `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// RenderConfig holds framebuffer and pipeline settings.
type RenderConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Pipeline   string     `yaml:"pipeline"` // debug or lit
	ReverseZ   bool       `yaml:"reverse_z"`
	ClearColor [4]float32 `yaml:"clear_color"`
	Workers    int        `yaml:"workers"`
	Frames     int        `yaml:"frames"`
}

// CameraConfig holds the orbit camera settings. Angles are in degrees.
type CameraConfig struct {
	FovXDeg      float32 `yaml:"fov_x_deg"`
	Near         float32 `yaml:"near"`
	Far          float32 `yaml:"far"`
	Radius       float32 `yaml:"radius"`
	AzimuthDeg   float32 `yaml:"azimuth_deg"`
	ElevationDeg float32 `yaml:"elevation_deg"`
	OrbitStepDeg float32 `yaml:"orbit_step_deg"` // azimuth change per frame
}

// LightingConfig holds the ambient and sun settings of the lit pipeline.
type LightingConfig struct {
	Ambient      [3]float32 `yaml:"ambient"`
	SunDirection [3]float32 `yaml:"sun_direction"`
	SunColor     [3]float32 `yaml:"sun_color"`
	SunIntensity float32    `yaml:"sun_intensity"`
	SunEnabled   bool       `yaml:"sun_enabled"`
}

// SceneConfig holds the instanced mesh grid. The mesh is a unit cube unless MeshPath names a
// .gltf or .glb file.
type SceneConfig struct {
	GridSize      int          `yaml:"grid_size"` // meshes per side
	Spacing       float32      `yaml:"spacing"`
	SpinDeg       float32      `yaml:"spin_deg"` // per-frame rotation of every instance
	Colors        [][4]float32 `yaml:"colors"`   // one material per color, assigned round robin
	MeshPath      string       `yaml:"mesh_path,omitempty"`
	MeshFitRadius float32      `yaml:"mesh_fit_radius"` // loaded meshes are rescaled to this radius
}

// OutputConfig holds output paths.
type OutputConfig struct {
	PNG      string `yaml:"png"`
	Progress bool   `yaml:"progress"` // frame progress bar, only drawn on a terminal
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Render: RenderConfig{
			Width:      640,
			Height:     480,
			Pipeline:   shading.LitPipelineKey,
			ReverseZ:   false,
			ClearColor: [4]float32{0, 0, 0, 0},
			Workers:    4,
			Frames:     1,
		},
		Camera: CameraConfig{
			FovXDeg:      90,
			Near:         0.1,
			Far:          100,
			Radius:       12,
			AzimuthDeg:   30,
			ElevationDeg: 35,
		},
		Lighting: LightingConfig{
			Ambient:      [3]float32{0.1, 0.1, 0.1},
			SunDirection: [3]float32{-0.4, -1, -0.6},
			SunColor:     [3]float32{1, 1, 1},
			SunIntensity: 1,
			SunEnabled:   true,
		},
		Scene: SceneConfig{
			GridSize:      4,
			Spacing:       2,
			MeshFitRadius: 0.8,
			Colors: [][4]float32{
				{0.9, 0.3, 0.2, 1},
				{0.2, 0.6, 0.9, 1},
			},
		},
		Output: OutputConfig{
			PNG:      "oxy-preview.png",
			Progress: true,
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside the renderer.
//
// Returns:
//   - error: every invalid setting, joined
func (c *Config) Validate() error {
	var errs []error
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render: size %dx%d must be positive", c.Render.Width, c.Render.Height))
	}
	if _, err := shading.ParseKind(c.Render.Pipeline); err != nil {
		errs = append(errs, fmt.Errorf("render: %w", err))
	}
	if c.Render.Workers < 1 {
		errs = append(errs, fmt.Errorf("render: workers %d must be at least 1", c.Render.Workers))
	}
	if c.Render.Frames < 1 {
		errs = append(errs, fmt.Errorf("render: frames %d must be at least 1", c.Render.Frames))
	}
	if c.Camera.FovXDeg <= 0 || c.Camera.FovXDeg >= 180 {
		errs = append(errs, fmt.Errorf("camera: fov_x_deg %v must be in (0, 180)", c.Camera.FovXDeg))
	}
	if c.Camera.Near <= 0 {
		errs = append(errs, fmt.Errorf("camera: near %v must be positive", c.Camera.Near))
	}
	if !c.Render.ReverseZ && c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera: far %v must exceed near %v", c.Camera.Far, c.Camera.Near))
	}
	if c.Camera.Radius <= 0 {
		errs = append(errs, fmt.Errorf("camera: radius %v must be positive", c.Camera.Radius))
	}
	if n := c.Scene.GridSize; n < 1 || n*n > maxGridInstances {
		errs = append(errs, fmt.Errorf("scene: grid_size %d must be in [1, %d]", n, maxGridSize))
	}
	if c.Scene.MeshFitRadius < 0 {
		errs = append(errs, fmt.Errorf("scene: mesh_fit_radius %v must not be negative", c.Scene.MeshFitRadius))
	}
	if len(c.Scene.Colors) == 0 {
		errs = append(errs, errors.New("scene: at least one color is required"))
	}
	if c.Output.PNG == "" {
		errs = append(errs, errors.New("output: png path is empty"))
	}
	return errors.Join(errs...)
}

// FileConfig converts the logging section into rotation settings for the logger.
func (l LoggingConfig) FileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       l.LogFile,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// a single-color grid is one batch, so the grid must fit one instance table
const (
	maxGridInstances = model.MaxInstances
	maxGridSize      = 32
)
