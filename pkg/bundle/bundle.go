// Package bundle implements the DTN bundle envelope and its deterministic
// wire codec for the contact-graph forwarding engine.
package bundle

import (
	"fmt"

	"github.com/google/uuid"
)

// TimeSeconds is the single time representation used at every engine
// boundary: a monotonic second count anchored at node start, or an
// absolute epoch second for deadlines. Conversions to time.Duration or
// time.Time happen only at I/O edges (CLI parsing, logging, audit rows).
type TimeSeconds = int64

// Bundle is the DTN protocol data unit forwarded by the engine.
//
// Invariants: SizeBytes equals the encoded length of the bundle, and
// NextHop is set if and only if AssignedRoute is set.
type Bundle struct {
	// ID is an internal correlation id for logs, metrics, and audit
	// rows. It is not part of the wire codec.
	ID uuid.UUID

	Source      string
	Destination string
	Payload     []byte
	SizeBytes   int

	Priority         int
	Critical         bool
	CustodyRequested bool
	Fragmentable     bool
	Deadline         TimeSeconds

	AssignedRoute *Route
	NextHop       string
}

// New creates a bundle with the size left unstamped; Marshal computes
// and fills SizeBytes.
func New(source, destination string, payload []byte, priority int) *Bundle {
	return &Bundle{
		ID:           uuid.New(),
		Source:       source,
		Destination:  destination,
		Payload:      payload,
		Priority:     priority,
		Fragmentable: true,
	}
}

// HasRoute reports whether the bundle carries an assigned route.
func (b *Bundle) HasRoute() bool {
	return b.AssignedRoute != nil
}

// Clone returns a deep copy, including a fresh copy of any assigned
// route, so forwarding a bundle down multiple routes (critical
// replication) never lets clones alias each other's state.
func (b *Bundle) Clone() *Bundle {
	payload := make([]byte, len(b.Payload))
	copy(payload, b.Payload)
	return &Bundle{
		ID:               uuid.New(),
		Source:           b.Source,
		Destination:      b.Destination,
		Payload:          payload,
		SizeBytes:        b.SizeBytes,
		Priority:         b.Priority,
		Critical:         b.Critical,
		CustodyRequested: b.CustodyRequested,
		Fragmentable:     b.Fragmentable,
		Deadline:         b.Deadline,
		AssignedRoute:    b.AssignedRoute.Clone(),
		NextHop:          b.NextHop,
	}
}

// String returns a short diagnostic representation, not the wire form.
func (b *Bundle) String() string {
	return fmt.Sprintf("bundle[src=%s dst=%s prio=%d size=%d critical=%t]",
		b.Source, b.Destination, b.Priority, b.SizeBytes, b.Critical)
}
