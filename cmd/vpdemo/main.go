// Command vpdemo renders one viewport of a synthetic whole-slide image with
// generated annotations and detections, and writes it as a PNG.
//
// With -watch it keeps running, re-rendering whenever the display settings
// file given by -config changes.
package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/pathoview/viewport"
	"github.com/pathoview/viewport/display"
	"github.com/pathoview/viewport/surface"
	"github.com/pathoview/viewport/tiles"
	"github.com/pathoview/viewport/transform"
)

func main() {
	var (
		config     = flag.String("config", "", "display settings file (.yaml, .yml or .toml)")
		width      = flag.Int("width", 800, "viewport width")
		height     = flag.Int("height", 600, "viewport height")
		slideW     = flag.Int("slide-width", 100000, "synthetic slide width")
		slideH     = flag.Int("slide-height", 80000, "synthetic slide height")
		x          = flag.Float64("x", -1, "image x at the viewport center (default: slide center)")
		y          = flag.Float64("y", -1, "image y at the viewport center (default: slide center)")
		downsample = flag.Float64("downsample", 32, "image pixels per viewport pixel")
		rotation   = flag.Float64("rotation", 0, "view rotation in degrees")
		cells      = flag.Int("cells", 20000, "number of synthetic detections")
		output     = flag.String("out", "viewport.png", "output file")
		watch      = flag.Bool("watch", false, "re-render when the -config file changes")
		verbose    = flag.Bool("v", false, "log every frame")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	viewport.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	settings := display.Default()
	if *config != "" {
		s, err := display.Load(*config)
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		settings = s
	}

	provider := tiles.NewSynthetic(*slideW, *slideH)
	repaint := make(chan struct{}, 1)
	r := viewport.New(provider,
		viewport.WithObjects(buildScene(*slideW, *slideH, *cells)),
		viewport.WithSettings(settings),
		viewport.WithRepaintHandler(func() {
			select {
			case repaint <- struct{}{}:
			default:
			}
		}),
	)
	defer r.Close()

	cx, cy := *x, *y
	if cx < 0 {
		cx = float64(*slideW) / 2
	}
	if cy < 0 {
		cy = float64(*slideH) / 2
	}
	state := transform.ViewState{
		CenterX:    cx,
		CenterY:    cy,
		Downsample: *downsample,
		Rotation:   *rotation * math.Pi / 180,
	}
	if err := r.SetViewState(state); err != nil {
		log.Fatalf("Invalid view: %v", err)
	}

	target := surface.NewImageSurface(*width, *height)
	render(r, target, *output)

	if !*watch {
		return
	}
	if *config == "" {
		log.Fatal("-watch needs -config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	changes := make(chan display.Settings, 1)
	go func() {
		err := display.Watch(ctx, *config, func(s display.Settings, err error) {
			if err != nil {
				viewport.Logger().Warn("settings not reloaded", "err", err)
				return
			}
			select {
			case changes <- s:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Printf("Watch stopped: %v", err)
			stop()
		}
	}()

	log.Printf("Watching %s, press Ctrl-C to stop", *config)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-changes:
			if err := r.SetDisplaySettings(s); err != nil {
				log.Printf("Settings rejected: %v", err)
			}
		case <-repaint:
			render(r, target, *output)
		}
	}
}

func render(r *viewport.Renderer, target *surface.ImageSurface, path string) {
	start := time.Now()
	res := r.Paint(target, target.Width(), target.Height())
	if res.Err != nil {
		log.Printf("Overlays skipped: %v", res.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	if err := png.Encode(f, target.Image()); err != nil {
		f.Close()
		log.Fatalf("Failed to encode: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Saved %s (%dx%d): %d objects drawn, %d skipped, complete=%v in %v",
		path, target.Width(), target.Height(), res.ObjectsDrawn, res.ObjectsSkipped,
		res.Complete, time.Since(start).Round(time.Millisecond))
}
