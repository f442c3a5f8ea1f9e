package jackautoplug

import (
	"fmt"
	"strings"
)

// QualifiedName returns the full JACK port name for a port owned by client.
func QualifiedName(client, port string) string {
	return client + ":" + port
}

// Pair is one directed connection that should exist in the graph.
// Both names are fully qualified ("client:port").
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string {
	return p.From + " -> " + p.To
}

// PortCountMismatchError is returned by NewPairs when the source and
// destination port lists cannot be paired positionally.
type PortCountMismatchError struct {
	Sources      int
	Destinations int
}

func (e *PortCountMismatchError) Error() string {
	return fmt.Sprintf("number of source ports (%d) must be equal to number of destination ports (%d)",
		e.Sources, e.Destinations)
}

// NewPairs qualifies the port names with their owning clients and pairs them
// by position: fromPorts[i] is connected to toPorts[i].
func NewPairs(fromClient string, fromPorts []string, toClient string, toPorts []string) ([]Pair, error) {
	if len(fromPorts) != len(toPorts) {
		return nil, &PortCountMismatchError{Sources: len(fromPorts), Destinations: len(toPorts)}
	}
	fromClient = strings.TrimSpace(fromClient)
	toClient = strings.TrimSpace(toClient)

	pairs := make([]Pair, len(fromPorts))
	for i := range fromPorts {
		pairs[i] = Pair{
			From: QualifiedName(fromClient, fromPorts[i]),
			To:   QualifiedName(toClient, toPorts[i]),
		}
	}
	return pairs, nil
}
