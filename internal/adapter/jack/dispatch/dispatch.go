// Package dispatch serializes runtime notifications onto one goroutine.
//
// JACK delivers notifications on its own thread and forbids server requests
// from there. Callbacks call Notify, which only enqueues; the Dispatcher's
// goroutine drains the queue and calls the sink, so passes never overlap and
// the activation notification always comes first.
package dispatch

import (
	"log/slog"
	"sync"

	"jackautoplug/converge"
)

type notification uint8

const (
	activated notification = iota + 1
	graphChanged
)

// Dispatcher queues notifications for a sink.
type Dispatcher struct {
	logger *slog.Logger
	events chan notification
	ready  chan struct{}
	quit   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	readyOnce sync.Once
	quitOnce  sync.Once
}

// New returns a Dispatcher holding at most buffer pending notifications,
// the activation included. Each pending notification triggers a full pass
// that reads fresh state, so dropping on overflow loses nothing.
func New(buffer int, logger *slog.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		events: make(chan notification, buffer),
		ready:  make(chan struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start queues the activation notification and starts the dispatch
// goroutine. Nothing reaches sink until Open is called. Start reports false
// when the Dispatcher was already started or stopped.
func (d *Dispatcher) Start(g converge.Graph, sink converge.Sink) bool {
	started := false
	d.startOnce.Do(func() {
		started = true
		d.events <- activated
		go d.run(g, sink)
	})
	return started
}

// Open releases queued notifications to the sink.
func (d *Dispatcher) Open() {
	d.readyOnce.Do(func() { close(d.ready) })
}

// Notify queues a topology change. It never blocks and reports whether the
// notification was queued.
func (d *Dispatcher) Notify() bool {
	select {
	case d.events <- graphChanged:
		return true
	default:
		d.logger.Debug("notification dropped, passes already pending")
		return false
	}
}

// Stop ends dispatching and waits for an in-flight pass. It is safe before
// Start and may be called more than once.
func (d *Dispatcher) Stop() {
	d.startOnce.Do(func() { close(d.done) })
	d.quitOnce.Do(func() { close(d.quit) })
	<-d.done
}

// Done is closed once the dispatch goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run(g converge.Graph, sink converge.Sink) {
	defer close(d.done)

	select {
	case <-d.ready:
	case <-d.quit:
		return
	}

	for {
		select {
		case <-d.quit:
			return
		case n := <-d.events:
			switch n {
			case activated:
				sink.OnActivate(g)
			case graphChanged:
				if sink.OnGraphChanged(g) == converge.Stop {
					d.logger.Debug("sink stopped notifications")
					return
				}
			}
		}
	}
}
