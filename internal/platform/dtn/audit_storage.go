package dtn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventKind names a point in a bundle's lifecycle worth recording
// off the forwarding hot path (§4.4's submit/drain never blocks on
// this; it is pure observability).
type AuditEventKind string

const (
	AuditSubmitted AuditEventKind = "submitted"
	AuditQueued    AuditEventKind = "queued"
	AuditSent      AuditEventKind = "sent"
	AuditDropped   AuditEventKind = "dropped"
	AuditLimbo     AuditEventKind = "limbo"
	AuditDelivered AuditEventKind = "delivered"
)

// AuditEvent is one row of the bundle lifecycle audit trail.
type AuditEvent struct {
	BundleID    uuid.UUID
	Source      string
	Destination string
	Priority    int
	Kind        AuditEventKind
	Reason      string
	At          time.Time
}

// AuditFilter narrows a List query.
type AuditFilter struct {
	Destination string
	Kind        AuditEventKind
	Limit       int
}

// AuditStorage is the bundle lifecycle audit sink. It sits beside the
// forwarding engine, never inside it: recording an event must never
// block or fail a submit/drain call.
type AuditStorage interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// InMemoryAuditStorage is an append-only ring buffer suitable for
// development and for nodes with no durable audit requirement.
type InMemoryAuditStorage struct {
	mu      sync.RWMutex
	events  []AuditEvent
	maxSize int
}

// NewInMemoryAuditStorage creates a bounded in-memory audit sink.
func NewInMemoryAuditStorage(maxSize int) *InMemoryAuditStorage {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &InMemoryAuditStorage{maxSize: maxSize}
}

func (s *InMemoryAuditStorage) Record(ctx context.Context, event AuditEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	s.events = append(s.events, event)
	if len(s.events) > s.maxSize {
		s.events = s.events[len(s.events)-s.maxSize:]
	}
	return nil
}

func (s *InMemoryAuditStorage) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuditEvent
	for _, e := range s.events {
		if filter.Destination != "" && e.Destination != filter.Destination {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryAuditStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *InMemoryAuditStorage) Close() error { return nil }
