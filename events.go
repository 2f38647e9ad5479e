package fractal

import (
	"fmt"
	"sync"
)

// EventKind identifies an engine notification.
type EventKind uint8

const (
	// EventProgress fires after every accepted tile.
	EventProgress EventKind = iota

	// EventComplete fires once all tiles of a generation are in.
	EventComplete

	// EventZoomLimit fires when a render request asked for a width below
	// the resolution limit and was clamped.
	EventZoomLimit
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	case EventZoomLimit:
		return "zoom.limit"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is delivered to handlers registered with Engine.On.
type Event struct {
	Kind       EventKind
	Generation uint64

	// Progress is the completed fraction of the frame, in [0, 1].
	// Set for EventProgress and EventComplete.
	Progress float64

	// Width is the clamped view width. Set for EventZoomLimit.
	Width float64
}

type handler struct {
	id uint64
	fn func(Event)
}

// dispatcher delivers events on its own goroutine in emission order.
// Emitting never blocks: the queue is unbounded, so the coordinator and
// callers of the engine API cannot be held up by a slow handler, and a
// handler may call back into the engine.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	hmu      sync.RWMutex
	handlers map[EventKind][]handler
	nextID   uint64

	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		handlers: make(map[EventKind][]handler),
		done:     make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// on registers fn for kind and returns a function that removes it.
func (d *dispatcher) on(kind EventKind, fn func(Event)) func() {
	d.hmu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[kind] = append(d.handlers[kind], handler{id: id, fn: fn})
	d.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.hmu.Lock()
			defer d.hmu.Unlock()
			hs := d.handlers[kind]
			for i, h := range hs {
				if h.id == id {
					d.handlers[kind] = append(hs[:i:i], hs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit queues e. Events emitted after close are dropped.
func (d *dispatcher) emit(e Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()
	d.cond.Signal()
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		e := d.queue[0]
		d.queue[0] = Event{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.deliver(e)
	}
}

func (d *dispatcher) deliver(e Event) {
	d.hmu.RLock()
	hs := d.handlers[e.Kind]
	d.hmu.RUnlock()

	for _, h := range hs {
		d.call(h.fn, e)
	}
}

// call runs one handler; a panicking handler is logged and skipped.
func (d *dispatcher) call(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("fractal: event handler panicked",
				"event", e.Kind.String(), "generation", e.Generation, "panic", r)
		}
	}()
	fn(e)
}

// close delivers every queued event and stops the dispatcher.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
	<-d.done
}
