// Command fractalrender renders a fractal view, or a flight between two
// views, to PNG.
//
//	fractalrender -fractal mandelbrot -x -0.7436 -y 0.1318 -w 0.002 -iter 800
//	fractalrender -record A... -flight-to A... -seconds 4 -fps 15 -output zoom.png
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tanema/gween/ease"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/formula"
)

type config struct {
	width, height int
	output        string
	fractalID     string
	x, y, w       float64
	iter          uint
	mode          string
	palette       string
	gradient      bool
	density       float64
	workers       int
	rotate        float64
	shear         float64
	record        string
	label         bool
	labelSize     float64
	flightTo      string
	seconds       float64
	fps           float64
	verbose       bool

	// set holds the names of flags given on the command line.
	set map[string]bool
}

func parseFlags() config {
	var c config
	flag.IntVar(&c.width, "width", 800, "image width")
	flag.IntVar(&c.height, "height", 600, "image height")
	flag.StringVar(&c.output, "output", "fractal.png", "output file; flight frames are numbered before the extension")
	flag.StringVar(&c.fractalID, "fractal", "mandelbrot", "fractal id: "+strings.Join(formula.Default().IDs(), ", "))
	flag.Float64Var(&c.x, "x", 0, "view centre, real part (default: fractal preset)")
	flag.Float64Var(&c.y, "y", 0, "view centre, imaginary part (default: fractal preset)")
	flag.Float64Var(&c.w, "w", 0, "view width (default: fractal preset)")
	flag.UintVar(&c.iter, "iter", 0, "maximum iterations (default: fractal preset)")
	flag.StringVar(&c.mode, "mode", "smooth", "colour mode: normal or smooth")
	flag.StringVar(&c.palette, "palette", "default", "palette: default, fire, gray, or a comma-separated colour list")
	flag.BoolVar(&c.gradient, "gradient", false, "expand a colour-list palette into a 256-entry gradient")
	flag.Float64Var(&c.density, "density", 0, "palette entries per iteration (default: palette's own)")
	flag.IntVar(&c.workers, "workers", 0, "worker goroutines (default: GOMAXPROCS)")
	flag.Float64Var(&c.rotate, "rotate", 0, "view rotation in degrees")
	flag.Float64Var(&c.shear, "shear", 0, "horizontal view shear")
	flag.StringVar(&c.record, "record", "", "start from a view record; overrides -x, -y, -w and -iter")
	flag.BoolVar(&c.label, "label", false, "draw the view coordinates into the image")
	flag.Float64Var(&c.labelSize, "label-size", 14, "caption size in points; 0 uses a fixed bitmap face")
	flag.StringVar(&c.flightTo, "flight-to", "", "render a flight to this view record")
	flag.Float64Var(&c.seconds, "seconds", 3, "flight duration in seconds")
	flag.Float64Var(&c.fps, "fps", 12, "flight frames per second")
	flag.BoolVar(&c.verbose, "v", false, "verbose logging")
	flag.Parse()

	c.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { c.set[f.Name] = true })
	return c
}

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	fractal.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fractalrender failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	f, ok := formula.Default().Lookup(cfg.fractalID)
	if !ok {
		return fmt.Errorf("unknown fractal %q (have %s)", cfg.fractalID, strings.Join(formula.Default().IDs(), ", "))
	}

	view, iter, err := startView(cfg, f.Preset)
	if err != nil {
		return err
	}
	mode, err := fractal.ParseColorMode(cfg.mode)
	if err != nil {
		return err
	}
	pal, err := buildPalette(cfg)
	if err != nil {
		return err
	}

	eng, err := fractal.New(cfg.width, cfg.height,
		fractal.WithWorkers(cfg.workers),
		fractal.WithPalette(pal))
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.On(fractal.EventZoomLimit, func(ev fractal.Event) {
		slog.Warn("view narrower than float64 can resolve; width clamped",
			"generation", ev.Generation, "width", ev.Width)
	})
	eng.On(fractal.EventProgress, func(ev fractal.Event) {
		slog.Debug("progress", "generation", ev.Generation, "done", fmt.Sprintf("%.0f%%", ev.Progress*100))
	})

	r := &renderer{cfg: cfg, eng: eng, fractalID: f.ID, iter: iter, mode: mode}
	p := message.NewPrinter(language.English)
	start := time.Now()

	if cfg.flightTo == "" {
		if err := r.single(ctx, view); err != nil {
			return err
		}
		p.Printf("wrote %s: %d×%d pixels, %d iterations, %v\n",
			cfg.output, cfg.width, cfg.height, iter, time.Since(start).Round(time.Millisecond))
	} else {
		to, _, err := decodeRecord(cfg.flightTo)
		if err != nil {
			return fmt.Errorf("-flight-to: %w", err)
		}
		n, err := r.flight(ctx, view, to)
		if err != nil {
			return err
		}
		p.Printf("wrote %d frames: %d pixels in %v\n",
			n, n*cfg.width*cfg.height, time.Since(start).Round(time.Millisecond))
	}

	if rec, err := view.Record(iter); err == nil {
		text, _ := rec.MarshalText()
		fmt.Printf("view record: %s\n", text)
	}
	return nil
}

// startView resolves the view from the preset, flags and -record.
func startView(cfg config, preset formula.Preset) (fractal.ViewState, uint, error) {
	view := fractal.NewView(preset.X, preset.Y, preset.W)
	iter := preset.Iter

	if cfg.record != "" {
		v, it, err := decodeRecord(cfg.record)
		if err != nil {
			return view, 0, fmt.Errorf("-record: %w", err)
		}
		view, iter = v, it
	}
	if cfg.set["x"] {
		view.CenterX = cfg.x
	}
	if cfg.set["y"] {
		view.CenterY = cfg.y
	}
	if cfg.set["w"] {
		view.Width = cfg.w
	}
	if cfg.set["iter"] {
		iter = cfg.iter
	}

	cam := fractal.NewCamera(cfg.width, cfg.height, view)
	if cfg.rotate != 0 {
		if _, err := cam.ApplyTransform(fractal.TransformRotation, cfg.rotate*math.Pi/180, 0); err != nil {
			return view, 0, err
		}
	}
	if cfg.shear != 0 {
		if _, err := cam.ApplyTransform(fractal.TransformShear, cfg.shear, 0); err != nil {
			return view, 0, err
		}
	}
	return cam.View(), iter, nil
}

func decodeRecord(s string) (fractal.ViewState, uint, error) {
	var rec fractal.ViewRecord
	if err := rec.UnmarshalText([]byte(s)); err != nil {
		return fractal.ViewState{}, 0, err
	}
	return fractal.ViewFromRecord(rec)
}

func buildPalette(cfg config) (fractal.Palette, error) {
	pal, err := fractal.PaletteByName(cfg.palette)
	if err != nil {
		return pal, err
	}
	if cfg.gradient && len(pal.Colors) > 1 {
		n := len(pal.Colors)
		if pal, err = fractal.NewGradientPalette(fractal.EvenStops(pal.Colors), gradientSize); err != nil {
			return pal, err
		}
		// One source colour per iteration, as in the discrete palette.
		pal.Density = gradientSize / float64(n)
	}
	if cfg.set["density"] {
		pal.Density = cfg.density
	}
	return pal, pal.Validate()
}

// gradientSize is the number of entries a -gradient palette expands to.
const gradientSize = 256

type renderer struct {
	cfg       config
	eng       *fractal.Engine
	fractalID string
	iter      uint
	mode      fractal.ColorMode
}

func (r *renderer) frame(ctx context.Context, view fractal.ViewState) (*image.RGBA, error) {
	img, err := r.eng.Render(ctx, view, r.fractalID, r.iter, r.mode)
	if err != nil {
		return nil, err
	}
	if r.cfg.label {
		if err := drawCaption(img, caption(r.fractalID, view, r.iter), r.cfg.labelSize); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (r *renderer) single(ctx context.Context, view fractal.ViewState) error {
	img, err := r.frame(ctx, view)
	if err != nil {
		return err
	}
	return writePNG(r.cfg.output, img)
}

// flight renders every frame of the flight in turn and encodes finished
// frames concurrently. The engine owns one canvas, so rendering itself is
// sequential.
func (r *renderer) flight(ctx context.Context, from, to fractal.ViewState) (int, error) {
	fl := fractal.NewFlight(from, to, float32(r.cfg.seconds), ease.InOutQuad)
	views := fl.Frames(float32(r.cfg.fps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, v := range views {
		img, err := r.frame(ctx, v)
		if err != nil {
			_ = g.Wait()
			return 0, fmt.Errorf("frame %d: %w", i, err)
		}
		path := framePath(r.cfg.output, i, len(views))
		g.Go(func() error { return writePNG(path, img) })
		slog.Debug("frame rendered", "frame", i, "width", v.Width)
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(views), nil
}

// framePath inserts a zero-padded frame number before the extension.
func framePath(output string, i, n int) string {
	ext := filepath.Ext(output)
	digits := len(fmt.Sprint(max(n-1, 0)))
	return fmt.Sprintf("%s_%0*d%s", strings.TrimSuffix(output, ext), digits, i, ext)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
