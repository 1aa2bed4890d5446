// Package sketch runs the interactive frame loop: input, simulation step,
// telemetry and presentation.
package sketch

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/inspector"
	"github.com/pthm-cable/pointmorph/renderer"
	"github.com/pthm-cable/pointmorph/renderer/splat"
	"github.com/pthm-cable/pointmorph/sim"
	"github.com/pthm-cable/pointmorph/telemetry"
	"github.com/pthm-cable/pointmorph/ui"
)

// Title is shown in the window and the HUD.
const Title = "Point Morph"

// Options configures a Sketch beyond the loaded config.
type Options struct {
	Seed            int64
	LogStats        bool
	OutputDir       string
	Headless        bool
	InitialProgress float64
}

// Sketch holds the complete state of one running sketch.
type Sketch struct {
	cfg     *config.Config
	session *sim.Session
	camera  *camera.Camera

	// Presentation, nil when headless
	cloud     *renderer.PointCloudRenderer
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	progress  *ui.ProgressPanel
	inspector *inspector.Inspector

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	logStats      bool

	// State
	paused        bool
	showPerf      bool
	pointerActive bool
	err           error // frame error that halted the simulation

	screenWidth, screenHeight float32
}

// New builds the session and, unless headless, the presentation layer.
// It must be called after the raylib window is created in graphics mode.
func New(cfg *config.Config, img image.Image, opts Options) (*Sketch, error) {
	session, err := sim.NewSession(cfg, img, opts.Seed)
	if err != nil {
		return nil, err
	}
	session.Params().SetProgress(opts.InitialProgress)

	w, h := float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	cam := camera.New(w, h, cfg.Camera.FOV, cfg.Camera.Distance)
	cam.Near = cfg.Camera.Near
	cam.Far = cfg.Camera.Far
	cam.AutoRotate = cfg.Camera.AutoRotate
	cam.AutoRotateSpeed = cfg.Camera.AutoRotateSpeed

	budget := time.Duration(0)
	if cfg.Screen.TargetFPS > 0 {
		budget = time.Second / time.Duration(cfg.Screen.TargetFPS)
	}

	s := &Sketch{
		cfg:           cfg,
		session:       session,
		camera:        cam,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow, budget),
		collector:     telemetry.NewCollector(cfg.Derived.StatsWindowFrames, cfg.Telemetry.StatsSampleStride),
		logStats:      opts.LogStats,
		screenWidth:   w,
		screenHeight:  h,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("creating output: %w", err)
	}
	s.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	if !opts.Headless {
		s.cloud = renderer.NewPointCloudRenderer(int32(w), int32(h), session.Size(), session.Workers(), splat.Style{
			Point:      splat.RGB(cfg.Render.PointColor),
			Alpha:      float32(cfg.Render.PointAlpha),
			Background: splat.RGB(cfg.Render.Background),
		})
		s.cloud.Init()
		s.hud = ui.NewHUD()
		s.perfPanel = ui.NewPerfPanel(int32(w)-230, 10, 220)
		s.progress = ui.NewProgressPanel(10, h-130, 320)
		s.inspector = inspector.NewInspector(int32(w), int32(h))
	}

	slog.Info("sketch ready",
		"particles", cfg.Derived.ParticleCount,
		"workers", session.Workers(),
		"integration", cfg.Kernels.Integration,
		"headless", opts.Headless,
	)
	return s, nil
}

// Frame returns the number of evaluated simulation frames.
func (s *Sketch) Frame() uint64 { return s.session.Frame() }

// Err returns the error that halted the simulation, if any.
func (s *Sketch) Err() error { return s.err }

// Session returns the underlying simulation session.
func (s *Sketch) Session() *sim.Session { return s.session }

// Unload releases GPU resources, workers and output files.
func (s *Sketch) Unload() {
	if s.cloud != nil {
		s.cloud.Unload()
	}
	s.session.Close()
	if err := s.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
