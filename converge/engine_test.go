package converge_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"jackautoplug"
	"jackautoplug/converge"
	"jackautoplug/internal/adapter/fake"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// --- helpers ---

type logBuffer struct{ bytes.Buffer }

func (b *logBuffer) Lines() []string {
	s := strings.TrimSpace(b.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newEngine(t *testing.T, pairs ...jackautoplug.Pair) (*converge.Engine, *logBuffer) {
	t.Helper()
	buf := &logBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return converge.New(pairs, converge.WithLogger(logger)), buf
}

func pair(from, to string) jackautoplug.Pair {
	return jackautoplug.Pair{From: from, To: to}
}

func outcomes(p converge.Pass) []converge.Outcome {
	out := make([]converge.Outcome, len(p.Results))
	for i, r := range p.Results {
		out[i] = r.Outcome
	}
	return out
}

// --- tests ---

func TestReconcileConnectsMissingPair(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("capA:out1", "capB:in1")
	e, logs := newEngine(t, pair("capA:out1", "capB:in1"))

	pass := e.Reconcile(context.Background(), g)

	if got := len(g.ConnectAttempts()); got != 1 {
		t.Fatalf("connect attempts = %d, want 1", got)
	}
	if !g.Linked("capA:out1", "capB:in1") {
		t.Error("capA:out1 -> capB:in1 not connected after pass")
	}
	if got := pass.Count(converge.Connected); got != 1 {
		t.Errorf("connected = %d, want 1", got)
	}
	lines := logs.Lines()
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "msg=connected") || !strings.Contains(lines[0], "from=capA:out1") {
		t.Errorf("log line = %q, want connected report for capA:out1", lines[0])
	}
}

func TestReconcileAlreadyConnectedIsSilent(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("capA:out1", "capB:in1")
	g.Link("capA:out1", "capB:in1")
	e, logs := newEngine(t, pair("capA:out1", "capB:in1"))

	pass := e.Reconcile(context.Background(), g)

	if got := len(g.ConnectAttempts()); got != 0 {
		t.Errorf("connect attempts = %d, want 0", got)
	}
	if got := pass.Count(converge.AlreadyConnected); got != 1 {
		t.Errorf("already connected = %d, want 1", got)
	}
	if lines := logs.Lines(); len(lines) != 0 {
		t.Errorf("log lines = %q, want none", lines)
	}
}

func TestReconcileSkipsMissingPortsSilently(t *testing.T) {
	tests := []struct {
		name  string
		ports []string
		want  converge.Outcome
	}{
		{name: "destination missing", ports: []string{"capA:out1"}, want: converge.DestinationMissing},
		{name: "source missing", ports: []string{"capB:in1"}, want: converge.SourceMissing},
		{name: "both missing", ports: nil, want: converge.SourceMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fake.NewGraph()
			g.AddPorts(tt.ports...)
			e, logs := newEngine(t, pair("capA:out1", "capB:in1"))

			pass := e.Reconcile(context.Background(), g)

			if got := outcomes(pass); len(got) != 1 || got[0] != tt.want {
				t.Errorf("outcomes = %v, want [%v]", got, tt.want)
			}
			if got := len(g.ConnectAttempts()); got != 0 {
				t.Errorf("connect attempts = %d, want 0", got)
			}
			if got := g.Queries(); got != 0 {
				t.Errorf("connection queries = %d, want 0", got)
			}
			if got := pass.Failed(); got != 0 {
				t.Errorf("failed = %d, want 0", got)
			}
			if lines := logs.Lines(); len(lines) != 0 {
				t.Errorf("log lines = %q, want none", lines)
			}
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:out1", "a:out2", "b:in1")
	e, _ := newEngine(t,
		pair("a:out1", "b:in1"),
		pair("a:out2", "b:in2"), // b:in2 absent
	)

	e.Reconcile(context.Background(), g)
	first := len(g.ConnectAttempts())
	edges := g.Edges()

	second := e.Reconcile(context.Background(), g)

	if got := len(g.ConnectAttempts()) - first; got != 0 {
		t.Errorf("second pass connect attempts = %d, want 0", got)
	}
	if got := g.Edges(); got != edges {
		t.Errorf("edges after second pass = %d, want %d", got, edges)
	}
	if got := second.Attempts(); got != 0 {
		t.Errorf("second pass Attempts() = %d, want 0", got)
	}
}

func TestReconcileNeverRemovesConnections(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:out1", "b:in1", "x:out", "y:in")
	g.Link("x:out", "y:in")
	g.Link("a:out1", "y:in")
	e, _ := newEngine(t, pair("a:out1", "b:in1"))

	e.Reconcile(context.Background(), g)

	for _, p := range []jackautoplug.Pair{pair("x:out", "y:in"), pair("a:out1", "y:in"), pair("a:out1", "b:in1")} {
		if !g.Linked(p.From, p.To) {
			t.Errorf("%v missing after pass", p)
		}
	}
	for _, p := range g.ConnectAttempts() {
		if p != pair("a:out1", "b:in1") {
			t.Errorf("unexpected connect attempt %v", p)
		}
	}
}

func TestReconcileContinuesPastFailingPairs(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:1", "b:1", "a:2", "b:2", "a:3", "b:3", "a:5", "b:5")
	g.FailCheck("a:1", "b:1", errors.New("server busy"))
	g.FailConnect("a:2", "b:2", fmt.Errorf("wrap: %w", jackautoplug.ErrConnectionRejected))
	g.FailConnect("a:3", "b:3", errors.New("boom"))
	e, _ := newEngine(t,
		pair("a:1", "b:1"),
		pair("a:2", "b:2"),
		pair("a:3", "b:3"),
		pair("a:4", "b:4"), // neither port exists
		pair("a:5", "b:5"),
	)

	pass := e.Reconcile(context.Background(), g)

	want := []converge.Outcome{
		converge.CheckFailed,
		converge.Rejected,
		converge.ConnectFailed,
		converge.SourceMissing,
		converge.Connected,
	}
	got := outcomes(pass)
	if len(got) != len(want) {
		t.Fatalf("outcomes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outcome[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !g.Linked("a:5", "b:5") {
		t.Error("a:5 -> b:5 not connected after earlier failures")
	}
	if got := pass.Failed(); got != 3 {
		t.Errorf("failed = %d, want 3", got)
	}
}

func TestReconcileCheckFailureDoesNotConnect(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:out", "b:in")
	g.FailCheck("a:out", "b:in", errors.New("no reply"))
	e, logs := newEngine(t, pair("a:out", "b:in"))

	pass := e.Reconcile(context.Background(), g)

	if got := len(g.ConnectAttempts()); got != 0 {
		t.Errorf("connect attempts = %d, want 0", got)
	}
	if pass.Results[0].Err == nil {
		t.Error("result error = nil, want check error")
	}
	lines := logs.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "level=ERROR") ||
		!strings.Contains(lines[0], "unexpected error while checking") {
		t.Errorf("log lines = %q, want one checking error", lines)
	}
}

func TestReconcileTreatsRaceAsSuccess(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:out", "b:in")
	g.BeforeConnect = func(src, dst string) {
		// Another client wins between IsConnected and Connect.
		g.Link(src, dst)
	}
	e, logs := newEngine(t, pair("a:out", "b:in"))

	pass := e.Reconcile(context.Background(), g)

	if got := outcomes(pass); got[0] != converge.Raced {
		t.Errorf("outcome = %v, want %v", got[0], converge.Raced)
	}
	if pass.Results[0].Err != nil {
		t.Errorf("result error = %v, want nil", pass.Results[0].Err)
	}
	if got := pass.Failed(); got != 0 {
		t.Errorf("failed = %d, want 0", got)
	}
	if lines := logs.Lines(); len(lines) != 0 {
		t.Errorf("log lines = %q, want none", lines)
	}
}

func TestReconcileLogLevels(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   string
		message string
	}{
		{name: "rejected", err: jackautoplug.ErrConnectionRejected, level: "level=WARN", message: "could not connect"},
		{name: "unexpected", err: errors.New("server gone"), level: "level=ERROR", message: "unexpected error while connecting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fake.NewGraph()
			g.AddPorts("a:out", "b:in")
			g.FailConnect("a:out", "b:in", tt.err)
			e, logs := newEngine(t, pair("a:out", "b:in"))

			e.Reconcile(context.Background(), g)

			lines := logs.Lines()
			if len(lines) != 1 {
				t.Fatalf("log lines = %q, want 1", lines)
			}
			if !strings.Contains(lines[0], tt.level) || !strings.Contains(lines[0], tt.message) {
				t.Errorf("log line = %q, want %s %q", lines[0], tt.level, tt.message)
			}
			if g.Linked("a:out", "b:in") {
				t.Error("pair connected despite failure")
			}
		})
	}
}

func TestReconcileConvergesAsPortsAppear(t *testing.T) {
	g := fake.NewGraph()
	e, _ := newEngine(t, pair("synth:out", "mixer:in"))

	e.Reconcile(context.Background(), g)
	g.AddPorts("synth:out")
	e.Reconcile(context.Background(), g)
	if g.Linked("synth:out", "mixer:in") {
		t.Fatal("connected before destination existed")
	}

	g.AddPorts("mixer:in")
	e.Reconcile(context.Background(), g)
	if !g.Linked("synth:out", "mixer:in") {
		t.Error("not connected once both ports exist")
	}
}

func TestReconcileRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	g := fake.NewGraph()
	g.AddPorts("a:out", "b:in")
	e := converge.New(
		[]jackautoplug.Pair{pair("a:out", "b:in"), pair("a:gone", "b:in")},
		converge.WithTracer(provider.Tracer("converge-test")),
		converge.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	e.Reconcile(context.Background(), g)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if got, want := span.Name(), "converge.reconcile"; got != want {
		t.Errorf("span name = %q, want %q", got, want)
	}
	if got := intAttr(span.Attributes(), "jackautoplug.pairs"); got != 2 {
		t.Errorf("pairs attribute = %d, want 2", got)
	}
	if got := intAttr(span.Attributes(), "jackautoplug.connected"); got != 1 {
		t.Errorf("connected attribute = %d, want 1", got)
	}
	if got := len(span.Events()); got != 1 {
		t.Errorf("span events = %d, want 1", got)
	}
}

func TestEnginePairsIsACopy(t *testing.T) {
	in := []jackautoplug.Pair{pair("a:out", "b:in")}
	e := converge.New(in)
	in[0].To = "mutated"

	got := e.Pairs()
	got[0].From = "mutated"

	if p := e.Pairs()[0]; p != pair("a:out", "b:in") {
		t.Errorf("engine pair = %v, want a:out -> b:in", p)
	}
}

func TestInspectNeverConnects(t *testing.T) {
	g := fake.NewGraph()
	g.AddPorts("a:1", "b:1", "a:2", "b:2", "a:3")
	g.Link("a:2", "b:2")
	e, _ := newEngine(t, pair("a:1", "b:1"), pair("a:2", "b:2"), pair("a:3", "b:3"))

	states := e.Inspect(g)

	if got := len(g.ConnectAttempts()); got != 0 {
		t.Errorf("connect attempts = %d, want 0", got)
	}
	if len(states) != 3 {
		t.Fatalf("states = %d, want 3", len(states))
	}
	if states[0].Connected || !states[0].SourceExists || !states[0].DestinationExists {
		t.Errorf("states[0] = %+v, want both ports present and unconnected", states[0])
	}
	if !states[1].Connected {
		t.Errorf("states[1] = %+v, want connected", states[1])
	}
	if !states[2].SourceExists || states[2].DestinationExists {
		t.Errorf("states[2] = %+v, want only source present", states[2])
	}
}

func intAttr(attrs []attribute.KeyValue, key string) int64 {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsInt64()
		}
	}
	return -1
}
