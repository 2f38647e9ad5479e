package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func dialTest(t *testing.T) (context.Context, *websocket.Conn) {
	t.Helper()
	h, err := newHandler(config{width: 32, height: 24, workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.CloseNow() })
	return ctx, c
}

// next reads messages until one of type want arrives. A want of "png"
// matches binary frames.
func next(ctx context.Context, t *testing.T, c *websocket.Conn, want string) (serverMsg, image.Image) {
	t.Helper()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		if typ == websocket.MessageBinary {
			if want != "png" {
				continue
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("frame is not a PNG: %v", err)
			}
			return serverMsg{Type: "png"}, img
		}

		var m serverMsg
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad message %q: %v", data, err)
		}
		if m.Type == want {
			return m, nil
		}
	}
}

func TestSession_InitialFrame(t *testing.T) {
	ctx, c := dialTest(t)

	hello, _ := next(ctx, t, c, "hello")
	if !slices.Contains(hello.Fractals, "mandelbrot") {
		t.Errorf("hello lists %v", hello.Fractals)
	}

	view, _ := next(ctx, t, c, "view")
	if view.View == nil || view.View.X != -0.5 || view.View.W != 3 || view.Record == "" {
		t.Errorf("initial view = %+v", view)
	}

	_, img := next(ctx, t, c, "png")
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("frame bounds = %v, want 32x24", b)
	}
}

func TestSession_Operations(t *testing.T) {
	ctx, c := dialTest(t)
	next(ctx, t, c, "png")

	t.Run("zoom", func(t *testing.T) {
		if err := wsjson.Write(ctx, c, clientMsg{Op: "zoom", Factor: 0.5, AtX: 16, AtY: 12}); err != nil {
			t.Fatal(err)
		}
		m, _ := next(ctx, t, c, "view")
		if m.View.W != 1.5 || m.View.X != -0.5 {
			t.Errorf("view after zoom = %+v", m.View)
		}
		next(ctx, t, c, "png")
	})

	t.Run("pan", func(t *testing.T) {
		if err := wsjson.Write(ctx, c, clientMsg{Op: "pan", DX: 32}); err != nil {
			t.Fatal(err)
		}
		m, _ := next(ctx, t, c, "view")
		if m.View.X != -2 {
			t.Errorf("centre after pan = %v, want -2", m.View.X)
		}
	})

	t.Run("transform", func(t *testing.T) {
		if err := wsjson.Write(ctx, c, clientMsg{Op: "transform", Kind: "scale", A: 2, B: 2}); err != nil {
			t.Fatal(err)
		}
		m, _ := next(ctx, t, c, "view")
		if m.View.Transform != [4]float64{2, 0, 0, 2} {
			t.Errorf("transform = %v", m.View.Transform)
		}
	})

	t.Run("resize", func(t *testing.T) {
		if err := wsjson.Write(ctx, c, clientMsg{Op: "resize", Width: 20, Height: 10}); err != nil {
			t.Fatal(err)
		}
		// Frames of earlier renders may still be in flight.
		for {
			_, img := next(ctx, t, c, "png")
			if b := img.Bounds(); b.Dx() == 20 && b.Dy() == 10 {
				break
			}
		}
	})

	t.Run("palette", func(t *testing.T) {
		if err := wsjson.Write(ctx, c, clientMsg{Op: "palette", Palette: "fire"}); err != nil {
			t.Fatal(err)
		}
		next(ctx, t, c, "png")
	})

	t.Run("record", func(t *testing.T) {
		x, w := -0.75, 0.25
		if err := wsjson.Write(ctx, c, clientMsg{Op: "view", X: &x, W: &w, Iter: 80}); err != nil {
			t.Fatal(err)
		}
		m, _ := next(ctx, t, c, "view")

		if err := wsjson.Write(ctx, c, clientMsg{Op: "view", Fractal: "burningship"}); err != nil {
			t.Fatal(err)
		}
		next(ctx, t, c, "view")

		if err := wsjson.Write(ctx, c, clientMsg{Op: "view", Record: m.Record}); err != nil {
			t.Fatal(err)
		}
		back, _ := next(ctx, t, c, "view")
		if back.View.X != -0.75 || back.View.W != 0.25 || back.Record != m.Record {
			t.Errorf("view from record = %+v, want centre -0.75 width 0.25", back.View)
		}
	})
}

func TestSession_Errors(t *testing.T) {
	ctx, c := dialTest(t)
	next(ctx, t, c, "view")

	tests := []clientMsg{
		{Op: "explode"},
		{Op: "zoom", Factor: -1},
		{Op: "transform", Kind: "scale", A: 0, B: 1},
		{Op: "palette", Palette: "nocolour"},
		{Op: "view", Fractal: "julia"},
		{Op: "view", Record: "garbage"},
		{Op: "resize", Width: 0, Height: 10},
	}
	for _, m := range tests {
		if err := wsjson.Write(ctx, c, m); err != nil {
			t.Fatal(err)
		}
		if got, _ := next(ctx, t, c, "error"); got.Error == "" {
			t.Errorf("op %+v: empty error", m)
		}
	}
}
