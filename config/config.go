// Package config provides configuration loading for the point-cloud sketch.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all sketch configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Grid      GridConfig      `yaml:"grid"`
	Encoder   EncoderConfig   `yaml:"encoder"`
	Kernels   KernelsConfig   `yaml:"kernels"`
	Compute   ComputeConfig   `yaml:"compute"`
	Camera    CameraConfig    `yaml:"camera"`
	Render    RenderConfig    `yaml:"render"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds window parameters.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds the particle grid size. Total particles = size².
type GridConfig struct {
	Size int `yaml:"size"`
}

// EncoderConfig holds target encoding parameters.
type EncoderConfig struct {
	Image                 string  `yaml:"image"`       // mask image path
	CanvasSize            int     `yaml:"canvas_size"` // image is drawn into canvas_size²
	MaskThreshold         int     `yaml:"mask_threshold"`
	Jitter                float64 `yaml:"jitter"`
	DepthJitter           float64 `yaml:"depth_jitter"`
	OutlierProbability    float64 `yaml:"outlier_probability"`
	OutlierSpread         float64 `yaml:"outlier_spread"`
	VelocitySeedAmplitude float64 `yaml:"velocity_seed_amplitude"`
}

// KernelsConfig holds the velocity/position kernel constants.
type KernelsConfig struct {
	Damping         float64 `yaml:"damping"`          // velocity retained per frame
	Attraction      float64 `yaml:"attraction"`       // pull toward the blended target
	PointerRadius   float64 `yaml:"pointer_radius"`   // world units
	PointerStrength float64 `yaml:"pointer_strength"` // push at zero distance
	MaxSpeed        float64 `yaml:"max_speed"`        // 0 disables the clamp
	NoiseAmplitude  float64 `yaml:"noise_amplitude"`  // 0 disables the noise term
	NoiseFrequency  float64 `yaml:"noise_frequency"`
	NoiseSeed       int64   `yaml:"noise_seed"`
	NoiseKind       string  `yaml:"noise_kind"`  // perlin | simplex
	Integration     string  `yaml:"integration"` // explicit | semi_implicit
	TimeStep        float64 `yaml:"time_step"`   // time uniform advance per frame
}

// ComputeConfig holds compute graph parameters.
type ComputeConfig struct {
	Format  string `yaml:"format"`
	Workers int    `yaml:"workers"` // 0 = GOMAXPROCS
}

// CameraConfig holds orbit camera parameters.
type CameraConfig struct {
	FOV             float64 `yaml:"fov"` // vertical, degrees
	Distance        float64 `yaml:"distance"`
	Near            float64 `yaml:"near"`
	Far             float64 `yaml:"far"`
	AutoRotate      bool    `yaml:"auto_rotate"`
	AutoRotateSpeed float64 `yaml:"auto_rotate_speed"` // 1.0 = one orbit per minute at 60fps
	PickRadius      float64 `yaml:"pick_radius"`       // radius of the pointer picking sphere
}

// RenderConfig holds point rendering parameters.
type RenderConfig struct {
	PointColor []int   `yaml:"point_color"` // RGB
	PointAlpha float64 `yaml:"point_alpha"` // contribution of one point
	Background []int   `yaml:"background"`  // RGB
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	StatsSampleStride   int     `yaml:"stats_sample_stride"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ParticleCount     int // Grid.Size²
	StatsWindowFrames int
	TimeStep32        float32
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate reports values that would produce a broken session.
func (c *Config) Validate() error {
	var errs []error
	if c.Grid.Size <= 0 {
		errs = append(errs, fmt.Errorf("grid.size must be positive, got %d", c.Grid.Size))
	}
	if c.Encoder.CanvasSize <= 0 {
		errs = append(errs, fmt.Errorf("encoder.canvas_size must be positive, got %d", c.Encoder.CanvasSize))
	}
	if c.Encoder.MaskThreshold < 0 || c.Encoder.MaskThreshold > 255 {
		errs = append(errs, fmt.Errorf("encoder.mask_threshold must be in [0,255], got %d", c.Encoder.MaskThreshold))
	}
	if c.Encoder.OutlierProbability < 0 || c.Encoder.OutlierProbability > 1 {
		errs = append(errs, fmt.Errorf("encoder.outlier_probability must be in [0,1], got %v", c.Encoder.OutlierProbability))
	}
	switch c.Kernels.Integration {
	case "semi_implicit", "explicit":
	default:
		errs = append(errs, fmt.Errorf("kernels.integration must be semi_implicit or explicit, got %q", c.Kernels.Integration))
	}
	switch c.Kernels.NoiseKind {
	case "perlin", "simplex":
	default:
		errs = append(errs, fmt.Errorf("kernels.noise_kind must be perlin or simplex, got %q", c.Kernels.NoiseKind))
	}
	if c.Kernels.PointerRadius < 0 {
		errs = append(errs, fmt.Errorf("kernels.pointer_radius must not be negative"))
	}
	if c.Compute.Workers < 0 {
		errs = append(errs, fmt.Errorf("compute.workers must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ParticleCount = c.Grid.Size * c.Grid.Size
	c.Derived.TimeStep32 = float32(c.Kernels.TimeStep)

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.StatsWindowFrames = int(c.Telemetry.StatsWindow * float64(fps))
	if c.Derived.StatsWindowFrames < 1 {
		c.Derived.StatsWindowFrames = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
