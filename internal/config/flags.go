package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagPipeline   = flag.String("pipeline", "", "Shading pipeline: debug or lit")
	flagWidth      = flag.Int("width", 0, "Framebuffer width")
	flagHeight     = flag.Int("height", 0, "Framebuffer height")
	flagOut        = flag.String("out", "", "Output PNG path")
	flagFrames     = flag.Int("frames", 0, "Number of frames to render")
	flagMesh       = flag.String("mesh", "", "Path to a .gltf or .glb mesh replacing the cube")
	flagLogLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error")
	flagSaveConfig = flag.String("save-config", "", "Write the effective config to this path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveConfigPath returns the path given via --save-config, or an empty string.
func SaveConfigPath() string {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagPipeline != "" {
		cfg.Render.Pipeline = *flagPipeline
	}
	if *flagWidth > 0 {
		cfg.Render.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Render.Height = *flagHeight
	}
	if *flagOut != "" {
		cfg.Output.PNG = *flagOut
	}
	if *flagFrames > 0 {
		cfg.Render.Frames = *flagFrames
	}
	if *flagMesh != "" {
		cfg.Scene.MeshPath = *flagMesh
	}
	if *flagLogLevel != "" {
		cfg.Logging.Level = *flagLogLevel
	}
}
