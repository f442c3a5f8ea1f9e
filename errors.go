package jackautoplug

import "errors"

// Error kinds a graph adapter reports from Connect. Adapters wrap them so
// callers can classify with errors.Is.
var (
	// ErrAlreadyConnected means the connection existed when the request
	// reached the graph, usually because another client made it first.
	ErrAlreadyConnected = errors.New("ports already connected")
	// ErrConnectionRejected means the graph refused the connection, e.g.
	// the port types or directions are incompatible.
	ErrConnectionRejected = errors.New("connection rejected")
)
