// Command fractalview serves an interactive fractal preview over WebSocket.
//
// Each browser connection gets its own camera and engine. The page sends
// JSON operations (view, zoom, pan, transform, palette, resize, cancel); the
// server answers with JSON progress events and one PNG per completed frame.
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/coder/websocket"

	"github.com/gogpu/fractal"
)

//go:embed static
var static embed.FS

type config struct {
	addr          string
	width, height int
	workers       int
	verbose       bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.addr, "addr", ":8080", "listen address")
	flag.IntVar(&cfg.width, "width", 960, "initial canvas width")
	flag.IntVar(&cfg.height, "height", 640, "initial canvas height")
	flag.IntVar(&cfg.workers, "workers", 0, "worker goroutines per connection (default: GOMAXPROCS)")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.Parse()

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
		slog.Error("fractalview failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	handler, err := newHandler(cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("listening", "url", "http://localhost"+cfg.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newHandler(cfg config) (http.Handler, error) {
	root, err := fs.Sub(static, "static")
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocketHandler(cfg))
	mux.Handle("/", http.FileServer(http.FS(root)))
	return mux, nil
}

// websocketHandler upgrades the request and runs one session until the
// client goes away.
func websocketHandler(cfg config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		defer c.CloseNow()
		c.SetReadLimit(1 << 16)

		s, err := newSession(r.Context(), c, cfg)
		if err != nil {
			c.Close(websocket.StatusInternalError, err.Error())
			return
		}
		defer s.close()

		slog.Info("client connected", "remote", r.RemoteAddr)
		err = s.serve()
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			slog.Info("client disconnected", "remote", r.RemoteAddr)
		default:
			slog.Debug("session ended", "remote", r.RemoteAddr, "err", err)
		}
	}
}
