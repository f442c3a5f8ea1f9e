package fake

import (
	"fmt"
	"sync"

	"jackautoplug"
	"jackautoplug/converge"
)

// Compile-time interface assertion.
var _ converge.Graph = (*Graph)(nil)

type edge struct{ from, to string }

// Graph is an in-memory routing graph and runtime. It implements
// converge.Graph and daemon.Runtime via structural typing.
//
// Mutators (AddPorts, Link, ...) only change state; tests call Notify to
// deliver the topology change, mirroring a runtime callback.
type Graph struct {
	mu       sync.Mutex
	ports    map[string]bool
	edges    map[edge]bool
	checkErr map[edge]error
	connErr  map[edge]error
	attempts []jackautoplug.Pair
	queries  int

	// BeforeConnect runs at the start of every Connect, without the lock
	// held, so tests can mutate the graph between check and connect.
	BeforeConnect func(src, dst string)

	// ActivateErr makes Activate fail.
	ActivateErr error
	// CloseErr is returned by Close.
	CloseErr    error

	sink      converge.Sink
	stopped   bool
	shutdown  chan struct{}
	closed    bool
	closeOnce sync.Once
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ports:    make(map[string]bool),
		edges:    make(map[edge]bool),
		checkErr: make(map[edge]error),
		connErr:  make(map[edge]error),
		shutdown: make(chan struct{}),
	}
}

// AddPorts registers ports by fully qualified name.
func (g *Graph) AddPorts(names ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range names {
		g.ports[name] = true
	}
}

// RemovePort unregisters a port and drops its connections, like JACK does.
func (g *Graph) RemovePort(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ports, name)
	for e := range g.edges {
		if e.from == name || e.to == name {
			delete(g.edges, e)
		}
	}
}

// Link connects two ports directly, as another client would.
func (g *Graph) Link(src, dst string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges[edge{src, dst}] = true
}

// Unlink removes a connection, as another client would.
func (g *Graph) Unlink(src, dst string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges, edge{src, dst})
}

// Linked reports whether src is connected to dst.
func (g *Graph) Linked(src, dst string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edges[edge{src, dst}]
}

// Edges returns the number of connections in the graph.
func (g *Graph) Edges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// FailCheck makes IsConnected(src, dst) return err. A nil err clears it.
func (g *Graph) FailCheck(src, dst string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.checkErr, edge{src, dst})
		return
	}
	g.checkErr[edge{src, dst}] = err
}

// FailConnect makes Connect(src, dst) return err. A nil err clears it.
func (g *Graph) FailConnect(src, dst string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.connErr, edge{src, dst})
		return
	}
	g.connErr[edge{src, dst}] = err
}

// ConnectAttempts returns every Connect request in order.
func (g *Graph) ConnectAttempts() []jackautoplug.Pair {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]jackautoplug.Pair(nil), g.attempts...)
}

// Queries returns how many IsConnected calls were made.
func (g *Graph) Queries() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queries
}

// --- converge.Graph ---

func (g *Graph) PortExists(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ports[name]
}

func (g *Graph) IsConnected(src, dst string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries++
	if err := g.checkErr[edge{src, dst}]; err != nil {
		return false, err
	}
	if !g.ports[src] {
		return false, fmt.Errorf("source port %q disappeared", src)
	}
	return g.edges[edge{src, dst}], nil
}

func (g *Graph) Connect(src, dst string) error {
	if hook := g.BeforeConnect; hook != nil {
		hook(src, dst)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts = append(g.attempts, jackautoplug.Pair{From: src, To: dst})

	if err := g.connErr[edge{src, dst}]; err != nil {
		return err
	}
	if !g.ports[src] || !g.ports[dst] {
		return fmt.Errorf("connect %s -> %s: no such port", src, dst)
	}
	if g.edges[edge{src, dst}] {
		return fmt.Errorf("connect %s -> %s: %w", src, dst, jackautoplug.ErrAlreadyConnected)
	}
	g.edges[edge{src, dst}] = true
	return nil
}

// --- daemon.Runtime ---

// Activate stores the sink and delivers the activation synchronously.
func (g *Graph) Activate(sink converge.Sink) error {
	if g.ActivateErr != nil {
		return g.ActivateErr
	}
	g.mu.Lock()
	g.sink = sink
	g.mu.Unlock()

	sink.OnActivate(g)
	return nil
}

// Notify delivers one topology change to the sink. It returns Stop when
// the graph is not active or the sink already asked to stop.
func (g *Graph) Notify() converge.Control {
	g.mu.Lock()
	sink, stopped := g.sink, g.stopped || g.closed
	g.mu.Unlock()
	if sink == nil || stopped {
		return converge.Stop
	}

	ctl := sink.OnGraphChanged(g)
	if ctl == converge.Stop {
		g.mu.Lock()
		g.stopped = true
		g.mu.Unlock()
	}
	return ctl
}

// Kill simulates the server shutting the client down.
func (g *Graph) Kill() {
	g.closeOnce.Do(func() { close(g.shutdown) })
}

func (g *Graph) Shutdown() <-chan struct{} {
	return g.shutdown
}

func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return g.CloseErr
}

// Closed reports whether Close was called.
func (g *Graph) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
