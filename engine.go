package fractal

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/fractal/formula"
)

// Engine renders fractals into a frame using a fixed pool of workers.
//
// All methods are safe for concurrent use. Render parameters are validated
// synchronously; the rendering itself happens in the background and is
// observed through events, Wait or Frame.
//
// Internally one coordinator goroutine owns the frame: it starts renders,
// merges tile results and applies palette and size changes. It is the only
// place a tile result can reach the frame, and it drops every result whose
// generation is not the current one.
type Engine struct {
	opts options

	// mu serializes operations that stamp generations against Resize, so
	// a render is always partitioned for the canvas size it was issued at.
	mu            sync.Mutex
	width, height int

	sched  *scheduler
	asm    *assembler
	events *dispatcher
	stats  statCounters

	cmds    chan func()
	results chan TileResult
	quit    chan struct{}
	wg      sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once

	// waitMu guards lastComplete and changed. changed is closed and
	// replaced whenever a generation completes or is superseded.
	waitMu       sync.Mutex
	lastComplete uint64
	changed      chan struct{}
}

// statCounters are written by workers and the coordinator.
type statCounters struct {
	accepted atomic.Uint64
	dropped  atomic.Uint64
	skipped  atomic.Uint64
	faults   atomic.Uint64
}

// Stats is a snapshot of engine counters since creation.
type Stats struct {
	// Generation is the current render generation.
	Generation uint64

	// Accepted is the number of tile results merged into the frame.
	Accepted uint64

	// Dropped is the number of tile results discarded because their
	// generation was superseded or the tile was already merged.
	Dropped uint64

	// Skipped is the number of tile jobs never computed because their
	// generation was superseded before a worker reached them.
	Skipped uint64

	// Faults is the number of tiles whose computation failed.
	Faults uint64
}

// New creates an engine for a width x height canvas and starts its workers.
// The frame starts out filled with the interior colour.
func New(width, height int, opts ...Option) (*Engine, error) {
	if err := validateSize(width, height); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    o,
		width:   width,
		height:  height,
		cmds:    make(chan func(), 16),
		quit:    make(chan struct{}),
		changed: make(chan struct{}),
	}
	e.sched = newScheduler(&e.opts, nil, e.quit, &e.stats)
	e.results = make(chan TileResult, 2*e.sched.pool.Workers())
	e.sched.results = e.results
	e.events = newDispatcher()
	e.asm = newAssembler(width, height, NewPainter(o.palette, o.interior), e.sched, e.events.emit, &e.stats, e.completed)

	e.wg.Add(1)
	go e.coordinate()

	Logger().Info("fractal: engine started",
		"width", width, "height", height, "workers", e.sched.pool.Workers())
	return e, nil
}

func validateSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return &ConfigError{Field: "canvas size", Reason: fmt.Sprintf("%dx%d is empty", width, height)}
	}
	return nil
}

// coordinate is the coordinator loop.
func (e *Engine) coordinate() {
	defer e.wg.Done()

	for {
		select {
		case <-e.quit:
			return
		case cmd := <-e.cmds:
			cmd()
		case res := <-e.results:
			e.asm.accept(res)
		}
	}
}

// send hands cmd to the coordinator.
func (e *Engine) send(cmd func()) error {
	select {
	case e.cmds <- cmd:
		return nil
	case <-e.quit:
		return ErrClosed
	}
}

// call runs cmd on the coordinator and waits for it to finish.
func (e *Engine) call(cmd func() error) error {
	ack := make(chan error, 1)
	if err := e.send(func() { ack <- cmd() }); err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-e.quit:
		return ErrClosed
	}
}

// On registers fn to be called for every event of the given kind and
// returns a function that unregisters it.
//
// Handlers run one at a time on a dedicated goroutine, in the order the
// events were emitted. A handler may call any engine method except Close.
func (e *Engine) On(kind EventKind, fn func(Event)) (off func()) {
	if fn == nil {
		return func() {}
	}
	return e.events.on(kind, fn)
}

// RequestRender starts rendering view with the named fractal and returns
// the generation stamped on the request. Any render in progress is
// superseded.
//
// Invalid parameters are reported synchronously as a *ConfigError (or an
// *OutOfRangeError for a view wider than the configured maximum) and no
// work is started. A view narrower than the resolution limit is not an
// error: it is clamped to the limit and EventZoomLimit fires.
func (e *Engine) RequestRender(view ViewState, fractalID string, maxIter uint, mode ColorMode) (uint64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	if err := view.Validate(); err != nil {
		return 0, err
	}
	f, ok := e.opts.registry.Lookup(fractalID)
	if !ok {
		return 0, &ConfigError{Field: "fractal", Reason: fmt.Sprintf("unknown id %q", fractalID)}
	}
	if maxIter == 0 {
		return 0, &ConfigError{Field: "max iterations", Reason: "must be at least 1"}
	}
	if mode != ModeNormal && mode != ModeSmooth {
		return 0, &ConfigError{Field: "mode", Reason: mode.String()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cam := NewCamera(e.width, e.height, view)
	cam.SetMaxWidth(e.opts.maxWidth)
	if view.Width > cam.MaxWidth() {
		return 0, &OutOfRangeError{Width: view.Width, Min: cam.ResolutionLimit(), Max: cam.MaxWidth()}
	}
	width, limited := cam.ClampWidth(view.Width)
	if limited {
		if err := cam.SetCenterAndWidth(view.Center(), width); err != nil {
			return 0, err
		}
	}

	req := RenderRequest{
		Generation: e.sched.next(),
		View:       cam.View(),
		FractalID:  fractalID,
		MaxIter:    maxIter,
		Mode:       mode,
		Width:      e.width,
		Height:     e.height,
	}
	e.notify(0)

	if limited {
		Logger().Debug("fractal: view width clamped to resolution limit",
			"requested", view.Width, "width", width, "generation", req.Generation)
		e.events.emit(Event{Kind: EventZoomLimit, Generation: req.Generation, Width: width})
	}

	fn := f.Normal
	if mode == ModeSmooth {
		fn = f.Smooth
	}
	if err := e.send(func() { e.start(req, cam, fn) }); err != nil {
		return 0, err
	}
	return req.Generation, nil
}

// start begins a render on the coordinator. A request superseded while it
// was queued is not started at all.
func (e *Engine) start(req RenderRequest, cam Camera, fn formula.Func) {
	tiles := e.sched.partition(req.Width, req.Height)
	if !e.sched.isCurrent(req.Generation) {
		e.stats.skipped.Add(uint64(len(tiles)))
		Logger().Debug("fractal: superseded request not started", "generation", req.Generation)
		return
	}

	e.asm.begin(req, tiles)
	e.sched.dispatch(req, cam, fn, tiles)

	Logger().Debug("fractal: render dispatched",
		"generation", req.Generation, "fractal", req.FractalID,
		"tiles", len(tiles), "maxIter", req.MaxIter, "mode", req.Mode.String())
}

// CancelRender supersedes the render in progress without starting a new
// one and returns the new generation. Tiles already computing finish and
// are discarded.
func (e *Engine) CancelRender() uint64 {
	gen := e.sched.cancel()
	e.notify(0)
	return gen
}

// SetPalette replaces the palette and repaints the frame from the retained
// escape values of the latest render. No fractal function is called.
func (e *Engine) SetPalette(p Palette) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clone()
	return e.call(func() error {
		e.asm.setPainter(e.asm.painter.WithPalette(p))
		return nil
	})
}

// Resize changes the canvas size. The render in progress is cancelled and
// the old frame is scaled into the new canvas as a preview; request a new
// render to fill it.
func (e *Engine) Resize(width, height int) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := validateSize(width, height); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if width == e.width && height == e.height {
		return nil
	}
	e.width, e.height = width, height
	e.sched.cancel()
	e.notify(0)

	return e.call(func() error {
		e.asm.resize(width, height)
		return nil
	})
}

// Size returns the canvas size.
func (e *Engine) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

// Generation returns the current render generation.
func (e *Engine) Generation() uint64 {
	return e.sched.current()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Generation: e.sched.current(),
		Accepted:   e.stats.accepted.Load(),
		Dropped:    e.stats.dropped.Load(),
		Skipped:    e.stats.skipped.Load(),
		Faults:     e.stats.faults.Load(),
	}
}

// Frame returns a copy of the current frame.
func (e *Engine) Frame() *image.RGBA {
	return e.asm.snapshot()
}

// completed records gen as the most recently completed generation.
// Called on the coordinator.
func (e *Engine) completed(gen uint64) {
	Logger().Info("fractal: frame complete", "generation", gen)
	e.notify(gen)
}

// notify wakes Wait callers. A non-zero gen is recorded as completed.
func (e *Engine) notify(gen uint64) {
	e.waitMu.Lock()
	if gen != 0 {
		e.lastComplete = gen
	}
	close(e.changed)
	e.changed = make(chan struct{})
	e.waitMu.Unlock()
}

// Wait blocks until generation gen completes, ctx is done, or gen is
// superseded. It returns nil on completion and ErrSuperseded once a newer
// generation has been issued, unless gen was the last generation to
// complete.
func (e *Engine) Wait(ctx context.Context, gen uint64) error {
	for {
		e.waitMu.Lock()
		last, changed := e.lastComplete, e.changed
		e.waitMu.Unlock()

		cur := e.sched.current()
		switch {
		case last == gen && gen != 0:
			return nil
		case e.closed.Load():
			return ErrClosed
		case gen == 0 || gen > cur:
			return &ConfigError{Field: "generation", Reason: fmt.Sprintf("%d has not been issued", gen)}
		case gen < cur:
			return ErrSuperseded
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Render requests a render, waits for it to complete and returns a copy of
// the frame. If ctx ends first, the render is cancelled (unless a newer one
// has already replaced it) and ctx.Err() is returned.
func (e *Engine) Render(ctx context.Context, view ViewState, fractalID string, maxIter uint, mode ColorMode) (*image.RGBA, error) {
	start := time.Now()
	gen, err := e.RequestRender(view, fractalID, maxIter, mode)
	if err != nil {
		return nil, err
	}
	if err := e.Wait(ctx, gen); err != nil {
		if e.sched.cancelIf(gen) {
			e.notify(0)
		}
		return nil, err
	}
	Logger().Debug("fractal: render finished", "generation", gen, "elapsed", time.Since(start))
	return e.Frame(), nil
}

// Close cancels any render in progress, stops the workers and the
// coordinator, and delivers pending events. Close is idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.sched.cancel()
		close(e.quit)
		e.wg.Wait()
		e.sched.close()
		e.events.close()
		e.notify(0)
		Logger().Info("fractal: engine closed")
	})
}
