// Mask preview tool - encodes a mask image into particle targets and renders
// the cloud to a PNG file for inspection, without opening a window.
//
// Usage: go run ./cmd/maskpreview -image logo.png -out preview.png -frames 300 -progress 1
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/encode"
	"github.com/pthm-cable/pointmorph/raster"
	"github.com/pthm-cable/pointmorph/renderer/splat"
	"github.com/pthm-cable/pointmorph/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	imagePath := flag.String("image", "", "Mask image (empty = use config encoder.image)")
	outPath := flag.String("out", "maskpreview.png", "Output PNG path")
	size := flag.Int("size", 800, "Output width and height")
	frames := flag.Int("frames", 0, "Simulation frames to run before rendering (0 = render the image target)")
	progress := flag.Float64("progress", 1, "Morph progress while simulating")
	azimuth := flag.Float64("azimuth", 0, "Camera azimuth in radians")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	if err := run(*configPath, *imagePath, *outPath, *size, *frames, *progress, *azimuth, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "maskpreview: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, imagePath, outPath string, size, frames int, progress, azimuth float64, seed int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if imagePath == "" {
		imagePath = cfg.Encoder.Image
	}
	img, err := encode.LoadImage(imagePath)
	if err != nil {
		return err
	}

	session, err := sim.NewSession(cfg, img, seed)
	if err != nil {
		return err
	}
	defer session.Close()

	var cloud *raster.Raster
	if frames > 0 {
		session.Params().SetProgress(progress)
		for f := 0; f < frames; f++ {
			if cloud, err = session.Step(); err != nil {
				return err
			}
		}
	} else {
		cloud = session.ImageTarget()
	}

	cam := camera.New(float32(size), float32(size), cfg.Camera.FOV, cfg.Camera.Distance)
	cam.Near, cam.Far = cfg.Camera.Near, cfg.Camera.Far
	cam.Azimuth = azimuth

	fb := splat.NewFramebuffer(size, size, session.Workers())
	s := splat.NewSplatter(session.Size(), splat.Style{
		Point:      splat.RGB(cfg.Render.PointColor),
		Alpha:      float32(cfg.Render.PointAlpha),
		Background: splat.RGB(cfg.Render.Background),
	})
	if err := s.Draw(fb, cloud, cam.Projector()); err != nil {
		return err
	}

	out := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i, px := range fb.Pix {
		out.SetRGBA(i%fb.Width, i/fb.Width, px)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encoding png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Preview rendered to: %s (%dx%d, %d particles, frame %d)\n",
		outPath, size, size, cfg.Derived.ParticleCount, session.Frame())
	return nil
}
