package converge

import (
	"time"

	"jackautoplug"
)

// Outcome is what a pass did with a single pair.
type Outcome uint8

const (
	SourceMissing      Outcome = iota + 1 // source port not registered; skipped
	DestinationMissing                    // destination port not registered; skipped
	AlreadyConnected                      // nothing to do
	Connected                             // connect succeeded
	Raced                                 // connect reported already connected
	Rejected                              // graph refused the connection
	CheckFailed                           // connection state unknown; skipped
	ConnectFailed                         // unexpected connect error
)

func (o Outcome) String() string {
	switch o {
	case SourceMissing:
		return "source_missing"
	case DestinationMissing:
		return "destination_missing"
	case AlreadyConnected:
		return "already_connected"
	case Connected:
		return "connected"
	case Raced:
		return "raced"
	case Rejected:
		return "rejected"
	case CheckFailed:
		return "check_failed"
	case ConnectFailed:
		return "connect_failed"
	default:
		return "unknown"
	}
}

// Linked reports whether the pair is connected after the pass.
func (o Outcome) Linked() bool {
	return o == AlreadyConnected || o == Connected || o == Raced
}

// Failed reports whether the outcome is a logged failure.
func (o Outcome) Failed() bool {
	return o == Rejected || o == CheckFailed || o == ConnectFailed
}

// Trigger is the runtime event that started a pass.
type Trigger uint8

const (
	TriggerActivate Trigger = iota + 1
	TriggerGraphChanged
)

func (t Trigger) String() string {
	switch t {
	case TriggerActivate:
		return "activate"
	case TriggerGraphChanged:
		return "graph_changed"
	default:
		return "unknown"
	}
}

// PairResult is the outcome for one pair in a pass.
type PairResult struct {
	Pair    jackautoplug.Pair
	Outcome Outcome
	Err     error
}

// Pass summarises one reconciliation pass.
type Pass struct {
	Started  time.Time
	Duration time.Duration
	Results  []PairResult
}

// Count returns how many pairs ended with outcome o.
func (p Pass) Count(o Outcome) int {
	n := 0
	for _, r := range p.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Linked returns how many pairs are connected after the pass.
func (p Pass) Linked() int {
	n := 0
	for _, r := range p.Results {
		if r.Outcome.Linked() {
			n++
		}
	}
	return n
}

// Failed returns how many pairs hit a logged failure.
func (p Pass) Failed() int {
	n := 0
	for _, r := range p.Results {
		if r.Outcome.Failed() {
			n++
		}
	}
	return n
}

// Attempts returns how many connect requests the pass issued.
func (p Pass) Attempts() int {
	n := 0
	for _, r := range p.Results {
		switch r.Outcome {
		case Connected, Raced, Rejected, ConnectFailed:
			n++
		}
	}
	return n
}
