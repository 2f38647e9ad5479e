package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/formula"
)

// writeTimeout bounds a single message write to the client.
const writeTimeout = 10 * time.Second

// clientMsg is one operation sent by the page. Fields not used by an op
// are ignored.
type clientMsg struct {
	Op string `json:"op"`

	// view
	Fractal string   `json:"fractal,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	W       *float64 `json:"w,omitempty"`
	Iter    uint     `json:"iter,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Record  string   `json:"record,omitempty"`

	// zoom: Factor < 1 zooms in about canvas position (AtX, AtY).
	Factor float64 `json:"factor,omitempty"`
	AtX    float64 `json:"atX,omitempty"`
	AtY    float64 `json:"atY,omitempty"`

	// pan: canvas-space drag delta.
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// transform: Kind is rotation, scale, shear or reset.
	Kind string  `json:"kind,omitempty"`
	A    float64 `json:"a,omitempty"`
	B    float64 `json:"b,omitempty"`

	// palette
	Palette string `json:"palette,omitempty"`

	// resize
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

type viewJSON struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	W         float64    `json:"w"`
	Transform [4]float64 `json:"transform"`
}

// serverMsg is one JSON notification sent to the page. Frames are sent
// separately as binary PNG messages.
type serverMsg struct {
	Type       string    `json:"type"`
	Generation uint64    `json:"generation,omitempty"`
	Progress   float64   `json:"progress,omitempty"`
	Width      float64   `json:"width,omitempty"`
	View       *viewJSON `json:"view,omitempty"`
	Record     string    `json:"record,omitempty"`
	Fractals   []string  `json:"fractals,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// session is one connected client. The camera is only touched by the read
// loop; the engine reports back through event handlers.
type session struct {
	ctx  context.Context
	conn *websocket.Conn
	eng  *fractal.Engine

	cam       fractal.Camera
	fractalID string
	iter      uint
	mode      fractal.ColorMode
}

func newSession(ctx context.Context, conn *websocket.Conn, cfg config) (*session, error) {
	eng, err := fractal.New(cfg.width, cfg.height, fractal.WithWorkers(cfg.workers))
	if err != nil {
		return nil, err
	}

	preset := formula.Mandelbrot.Preset
	s := &session{
		ctx:       ctx,
		conn:      conn,
		eng:       eng,
		cam:       fractal.NewCamera(cfg.width, cfg.height, fractal.NewView(preset.X, preset.Y, preset.W)),
		fractalID: formula.Mandelbrot.ID,
		iter:      preset.Iter,
		mode:      fractal.ModeSmooth,
	}

	eng.On(fractal.EventProgress, func(ev fractal.Event) {
		s.send(serverMsg{Type: ev.Kind.String(), Generation: ev.Generation, Progress: ev.Progress})
	})
	eng.On(fractal.EventZoomLimit, func(ev fractal.Event) {
		s.send(serverMsg{Type: ev.Kind.String(), Generation: ev.Generation, Width: ev.Width})
	})
	eng.On(fractal.EventComplete, func(ev fractal.Event) {
		s.send(serverMsg{Type: ev.Kind.String(), Generation: ev.Generation, Progress: 1})
		if ev.Generation == s.eng.Generation() {
			s.sendFrame()
		}
	})
	return s, nil
}

// serve greets the client, renders the initial view and then handles
// operations until the connection fails.
func (s *session) serve() error {
	s.send(serverMsg{Type: "hello", Fractals: formula.Default().IDs()})
	s.render()

	for {
		var m clientMsg
		if err := wsjson.Read(s.ctx, s.conn, &m); err != nil {
			return err
		}
		if err := s.handle(m); err != nil {
			slog.Debug("operation rejected", "op", m.Op, "err", err)
			s.send(serverMsg{Type: "error", Error: err.Error()})
		}
	}
}

func (s *session) close() {
	s.eng.Close()
}

func (s *session) handle(m clientMsg) error {
	switch m.Op {
	case "view":
		return s.setView(m)

	case "zoom":
		if m.Factor <= 0 || math.IsNaN(m.Factor) {
			return fmt.Errorf("zoom factor %v must be positive", m.Factor)
		}
		if s.cam.ZoomAt(m.Factor, fractal.Pt(m.AtX, m.AtY)) {
			s.send(serverMsg{Type: fractal.EventZoomLimit.String(), Width: s.cam.View().Width})
		}

	case "pan":
		s.cam.Pan(fractal.Pt(m.DX, m.DY))

	case "transform":
		if err := s.transform(m); err != nil {
			return err
		}

	case "palette":
		pal, err := fractal.PaletteByName(m.Palette)
		if err != nil {
			return err
		}
		if err := s.eng.SetPalette(pal); err != nil {
			return err
		}
		s.sendFrame()
		return nil

	case "resize":
		if err := s.eng.Resize(m.Width, m.Height); err != nil {
			return err
		}
		s.cam.Resize(m.Width, m.Height)

	case "cancel":
		s.eng.CancelRender()
		return nil

	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}

	s.render()
	return nil
}

// setView applies a view op. Unset fields keep their current value; a
// record replaces the centre, width and iterations at once.
func (s *session) setView(m clientMsg) error {
	next := s.cam.Clone()
	fractalID, iter, mode := s.fractalID, s.iter, s.mode

	if m.Fractal != "" && m.Fractal != fractalID {
		f, ok := formula.Default().Lookup(m.Fractal)
		if !ok {
			return fmt.Errorf("unknown fractal %q", m.Fractal)
		}
		fractalID = f.ID
		iter = f.Preset.Iter
		next.ResetTransform()
		if err := next.SetCenterAndWidth(fractal.Pt(f.Preset.X, f.Preset.Y), f.Preset.W); err != nil {
			return err
		}
	}
	if m.Record != "" {
		var rec fractal.ViewRecord
		if err := rec.UnmarshalText([]byte(strings.TrimSpace(m.Record))); err != nil {
			return err
		}
		v, it, err := fractal.ViewFromRecord(rec)
		if err != nil {
			return err
		}
		next.ResetTransform()
		if err := next.SetCenterAndWidth(v.Center(), v.Width); err != nil {
			return err
		}
		iter = it
	}

	center, width := next.View().Center(), next.View().Width
	if m.X != nil {
		center.X = *m.X
	}
	if m.Y != nil {
		center.Y = *m.Y
	}
	if m.W != nil {
		width = *m.W
	}
	if err := next.SetCenterAndWidth(center, width); err != nil {
		return err
	}

	if m.Iter != 0 {
		iter = m.Iter
	}
	if m.Mode != "" {
		md, err := fractal.ParseColorMode(m.Mode)
		if err != nil {
			return err
		}
		mode = md
	}

	s.cam, s.fractalID, s.iter, s.mode = next, fractalID, iter, mode
	s.render()
	return nil
}

func (s *session) transform(m clientMsg) error {
	var kind fractal.TransformKind
	switch m.Kind {
	case "reset":
		s.cam.ResetTransform()
		return nil
	case "rotation":
		kind = fractal.TransformRotation
	case "scale":
		kind = fractal.TransformScale
	case "shear":
		kind = fractal.TransformShear
	default:
		return fmt.Errorf("unknown transform %q", m.Kind)
	}
	_, err := s.cam.ApplyTransform(kind, m.A, m.B)
	return err
}

// render requests the camera's current view and tells the client which
// generation to expect.
func (s *session) render() {
	view := s.cam.View()
	gen, err := s.eng.RequestRender(view, s.fractalID, s.iter, s.mode)
	if err != nil {
		s.send(serverMsg{Type: "error", Error: err.Error()})
		return
	}

	msg := serverMsg{
		Type:       "view",
		Generation: gen,
		View: &viewJSON{
			X: view.CenterX, Y: view.CenterY, W: view.Width,
			Transform: [4]float64{view.Transform.A, view.Transform.B, view.Transform.D, view.Transform.E},
		},
	}
	if rec, err := view.Record(s.iter); err == nil {
		text, _ := rec.MarshalText()
		msg.Record = string(text)
	}
	s.send(msg)
}

func (s *session) send(m serverMsg) {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, m); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("send failed", "type", m.Type, "err", err)
	}
}

// sendFrame encodes the current frame as PNG and sends it as one binary
// message.
func (s *session) sendFrame() {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, s.eng.Frame()); err != nil {
		slog.Warn("frame encode failed", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageBinary, buf.Bytes()); err != nil {
		slog.Debug("frame send failed", "err", err)
	}
}
