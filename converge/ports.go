package converge

// Graph is the slice of the routing graph the engine needs.
// Production: internal/adapter/jack.Client
// Testing: internal/adapter/fake.Graph
type Graph interface {
	// PortExists reports whether a port with the fully qualified name is
	// currently registered.
	PortExists(name string) bool
	// IsConnected reports whether src already feeds dst.
	IsConnected(src, dst string) (bool, error)
	// Connect requests a connection from src to dst. Implementations wrap
	// jackautoplug.ErrAlreadyConnected and jackautoplug.ErrConnectionRejected
	// for the two expected failure kinds.
	Connect(src, dst string) error
}

// Control tells the runtime whether to keep delivering notifications.
type Control uint8

const (
	Continue Control = iota
	Stop
)

// Sink receives runtime notifications. Activation is delivered once, before
// any topology change.
type Sink interface {
	OnActivate(g Graph)
	OnGraphChanged(g Graph) Control
}

// Observer is told about every completed pass.
type Observer interface {
	ObservePass(trigger Trigger, pass Pass)
}
