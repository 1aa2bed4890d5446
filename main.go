package main

import (
	"flag"
	"image"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/encode"
	"github.com/pthm-cable/pointmorph/sketch"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	imagePath := flag.String("image", "", "Mask image (empty = use config encoder.image)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N frames (0 = unlimited)")
	progress := flag.Float64("progress", 0, "Initial morph progress in [0,1]")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *imagePath != "" {
		cfg.Encoder.Image = *imagePath
	}
	if cfg.Encoder.Image == "" {
		slog.Error("no mask image: set -image or encoder.image")
		os.Exit(1)
	}

	img, err := encode.LoadImage(cfg.Encoder.Image)
	if err != nil {
		slog.Error("failed to load mask image", "path", cfg.Encoder.Image, "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := sketch.Options{
		Seed:            rngSeed,
		LogStats:        *logStats,
		OutputDir:       *outputDir,
		Headless:        *headless,
		InitialProgress: *progress,
	}

	if *headless {
		os.Exit(runHeadless(cfg, img, opts, *maxTicks))
	}
	os.Exit(runWindow(cfg, img, opts, *maxTicks))
}

// runHeadless steps the simulation without raylib and returns the exit code.
func runHeadless(cfg *config.Config, img image.Image, opts sketch.Options, maxTicks int) int {
	s, err := sketch.New(cfg, img, opts)
	if err != nil {
		slog.Error("failed to create sketch", "error", err)
		return 1
	}
	defer s.Unload()

	slog.Info("starting headless simulation",
		"seed", opts.Seed,
		"image", cfg.Encoder.Image,
		"progress", opts.InitialProgress,
		"max_ticks", maxTicks,
	)

	for {
		s.UpdateHeadless()
		if err := s.Err(); err != nil {
			return 1
		}
		if maxTicks > 0 && int(s.Frame()) >= maxTicks {
			slog.Info("max ticks reached", "frame", s.Frame())
			return 0
		}
	}
}

// runWindow runs the graphical loop and returns the exit code.
func runWindow(cfg *config.Config, img image.Image, opts sketch.Options, maxTicks int) int {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), sketch.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	s, err := sketch.New(cfg, img, opts)
	if err != nil {
		slog.Error("failed to create sketch", "error", err)
		return 1
	}
	defer s.Unload()

	slog.Info("starting simulation", "seed", opts.Seed, "image", cfg.Encoder.Image)

	for !rl.WindowShouldClose() {
		s.Update()
		s.Draw()

		if maxTicks > 0 && int(s.Frame()) >= maxTicks {
			break
		}
	}
	if s.Err() != nil {
		return 1
	}
	return 0
}
