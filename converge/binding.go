package converge

import (
	"context"
	"sync"

	"jackautoplug/internal/check"
)

// Binding runs the engine from runtime notifications. It implements Sink.
//
// Every notification runs one full pass synchronously on the caller's
// goroutine. Notifications are not merged or rate limited here; the runtime
// decides how they are delivered.
type Binding struct {
	ctx      context.Context
	engine   *Engine
	observer Observer

	mu        sync.RWMutex
	activated bool
	passes    uint64
	last      Pass
}

var _ Sink = (*Binding)(nil)

// NewBinding binds engine to runtime notifications. Once ctx is cancelled
// the binding asks the runtime to stop delivering topology changes.
// observer may be nil.
func NewBinding(ctx context.Context, engine *Engine, observer Observer) *Binding {
	check.Assert(engine != nil, "converge.NewBinding: engine must not be nil")
	return &Binding{ctx: ctx, engine: engine, observer: observer}
}

// OnActivate runs the initial pass so ports that already exist get
// connected regardless of startup order.
func (b *Binding) OnActivate(g Graph) {
	b.run(TriggerActivate, g)
}

// OnGraphChanged runs one pass per topology change.
func (b *Binding) OnGraphChanged(g Graph) Control {
	if b.ctx.Err() != nil {
		return Stop
	}
	b.run(TriggerGraphChanged, g)
	return Continue
}

func (b *Binding) run(trigger Trigger, g Graph) {
	pass := b.engine.Reconcile(b.ctx, g)

	b.mu.Lock()
	if trigger == TriggerActivate {
		b.activated = true
	}
	b.passes++
	b.last = pass
	b.mu.Unlock()

	if b.observer != nil {
		b.observer.ObservePass(trigger, pass)
	}
}

// Status is a point-in-time view of the binding.
type Status struct {
	Activated bool
	Passes    uint64
	LastPass  Pass
}

// Status returns the activation state and the most recent pass.
func (b *Binding) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	last := b.last
	last.Results = append([]PairResult(nil), b.last.Results...)
	return Status{Activated: b.activated, Passes: b.passes, LastPass: last}
}

// Engine returns the bound engine.
func (b *Binding) Engine() *Engine {
	return b.engine
}
