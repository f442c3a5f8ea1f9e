package converge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jackautoplug"
	"jackautoplug/internal/check"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "jackautoplug/converge"

// Engine connects the desired pairs that are missing from the graph.
// The pair list is fixed at construction and only read afterwards, so a
// single Engine may be shared by every notification.
type Engine struct {
	pairs  []jackautoplug.Pair
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-pair reports.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for pass spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// New creates an engine for the given pairs. The slice is copied.
func New(pairs []jackautoplug.Pair, opts ...Option) *Engine {
	e := &Engine{
		pairs:  append([]jackautoplug.Pair(nil), pairs...),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pairs returns a copy of the desired pairs.
func (e *Engine) Pairs() []jackautoplug.Pair {
	return append([]jackautoplug.Pair(nil), e.pairs...)
}

// Reconcile runs one pass over the desired pairs. It never removes a
// connection and never gives up early: every pair is visited even when an
// earlier one failed. Absent ports and races are expected and stay quiet;
// only genuine failures are logged.
func (e *Engine) Reconcile(ctx context.Context, g Graph) Pass {
	ctx, span := e.tracer.Start(ctx, "converge.reconcile",
		trace.WithAttributes(attribute.Int("jackautoplug.pairs", len(e.pairs))))
	defer span.End()

	pass := Pass{
		Started: e.now(),
		Results: make([]PairResult, 0, len(e.pairs)),
	}
	for _, pair := range e.pairs {
		res := e.reconcilePair(ctx, g, pair)
		if res.Outcome == Connected {
			span.AddEvent("connected", trace.WithAttributes(
				attribute.String("jackautoplug.from", pair.From),
				attribute.String("jackautoplug.to", pair.To),
			))
		}
		pass.Results = append(pass.Results, res)
	}
	pass.Duration = e.now().Sub(pass.Started)
	check.Assertf(len(pass.Results) == len(e.pairs), "pass visited %d of %d pairs", len(pass.Results), len(e.pairs))

	span.SetAttributes(
		attribute.Int("jackautoplug.connected", pass.Count(Connected)),
		attribute.Int("jackautoplug.linked", pass.Linked()),
		attribute.Int("jackautoplug.failed", pass.Failed()),
	)
	if failed := pass.Failed(); failed > 0 {
		span.SetStatus(codes.Error, "some pairs could not be connected")
	}
	return pass
}

func (e *Engine) reconcilePair(ctx context.Context, g Graph, pair jackautoplug.Pair) PairResult {
	res := PairResult{Pair: pair}

	// The owning clients may simply not be running yet.
	if !g.PortExists(pair.From) {
		res.Outcome = SourceMissing
		e.logger.DebugContext(ctx, "source port missing", "from", pair.From, "to", pair.To)
		return res
	}
	if !g.PortExists(pair.To) {
		res.Outcome = DestinationMissing
		e.logger.DebugContext(ctx, "destination port missing", "from", pair.From, "to", pair.To)
		return res
	}

	linked, err := g.IsConnected(pair.From, pair.To)
	if err != nil {
		// Never connect on unknown state.
		res.Outcome, res.Err = CheckFailed, err
		e.logger.ErrorContext(ctx, "unexpected error while checking", "from", pair.From, "to", pair.To, "err", err)
		return res
	}
	if linked {
		res.Outcome = AlreadyConnected
		return res
	}

	err = g.Connect(pair.From, pair.To)
	switch {
	case err == nil:
		res.Outcome = Connected
		e.logger.InfoContext(ctx, "connected", "from", pair.From, "to", pair.To)
	case errors.Is(err, jackautoplug.ErrAlreadyConnected):
		// Someone else connected the pair after IsConnected.
		res.Outcome = Raced
	case errors.Is(err, jackautoplug.ErrConnectionRejected):
		res.Outcome, res.Err = Rejected, err
		e.logger.WarnContext(ctx, "could not connect", "from", pair.From, "to", pair.To, "err", err)
	default:
		res.Outcome, res.Err = ConnectFailed, err
		e.logger.ErrorContext(ctx, "unexpected error while connecting", "from", pair.From, "to", pair.To, "err", err)
	}
	return res
}
