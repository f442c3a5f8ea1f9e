package daemon

import "jackautoplug/converge"

// Runtime is a live handle to the routing graph.
// Production: internal/adapter/jack.Client
// Testing: internal/adapter/fake.Graph
type Runtime interface {
	converge.Graph
	// Activate makes the handle live and starts delivering notifications
	// to sink, activation first.
	Activate(sink converge.Sink) error
	// Shutdown is closed when the graph server drops the handle.
	Shutdown() <-chan struct{}
	Close() error
}

// Opener obtains a Runtime registered under the given client name.
type Opener func(name string, startServer bool) (Runtime, error)

// StatusSource is what the HTTP API reads. *converge.Binding satisfies it.
type StatusSource interface {
	Status() converge.Status
}
