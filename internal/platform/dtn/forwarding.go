package dtn

import (
	"container/list"

	"github.com/asgard/cgrsat/internal/engineerr"
	"github.com/asgard/cgrsat/internal/utils"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// Sender transmits an already-queued, already-admitted bundle over the
// transport. It is the forwarding engine's only outward dependency,
// kept narrow so tests can stub it without a real socket.
type Sender interface {
	Send(b *bundle.Bundle) error
}

// candidate pairs a route from the route table with its PAT, computed
// once by is_candidate and reused by select_best and the critical
// fanout without recomputation.
type candidate struct {
	route *bundle.Route
	pat   int64
	index int
}

// ForwardingObserver is notified of a bundle's terminal outcome at the
// end of a Submit call: delivered locally, queued (by single-route
// selection or critical fanout), sent to limbo, or dropped outright.
// A bundle that already carries a route and is re-queued toward its
// next hop produces no notification.
// Implementations must not block; do slow I/O on a goroutine.
type ForwardingObserver interface {
	OnOutcome(b *bundle.Bundle, outcome BundleOutcome)
}

// BundleOutcome names where a bundle ended up after one Submit call.
type BundleOutcome int

const (
	OutcomeQueuedSingle BundleOutcome = iota
	OutcomeQueuedFanout
	OutcomeDelivered
	OutcomeLimbo
	OutcomeDropped
)

func (o BundleOutcome) String() string {
	switch o {
	case OutcomeQueuedSingle:
		return "single"
	case OutcomeQueuedFanout:
		return "fanout"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeLimbo:
		return "limbo"
	default:
		return "drop"
	}
}

// ForwardingEngine is the per-node state machine described in §4.4:
// admissibility, best-route selection, critical replication, a limbo
// of currently unroutable bundles, and priority FIFO send queues.
type ForwardingEngine struct {
	selfID     string
	priorities int
	table      *RouteTable
	sender     Sender
	logger     *utils.Logger
	observer   ForwardingObserver

	queues map[int]*list.List // priority -> FIFO of *bundle.Bundle
	limbo  *list.List
}

// SetObserver registers a callback fired with every Submit call's
// terminal outcome. Passing nil disables notification.
func (e *ForwardingEngine) SetObserver(observer ForwardingObserver) {
	e.observer = observer
}

func (e *ForwardingEngine) notify(b *bundle.Bundle, outcome BundleOutcome) {
	if e.observer != nil {
		e.observer.OnOutcome(b, outcome)
	}
}

// NewForwardingEngine constructs an engine for selfID with priorities
// 1..=priorityCount, backed by table for route lookups and sender for
// transmission.
func NewForwardingEngine(selfID string, priorityCount int, table *RouteTable, sender Sender, logger *utils.Logger) *ForwardingEngine {
	queues := make(map[int]*list.List, priorityCount)
	for p := 1; p <= priorityCount; p++ {
		queues[p] = list.New()
	}
	return &ForwardingEngine{
		selfID:     selfID,
		priorities: priorityCount,
		table:      table,
		sender:     sender,
		logger:     logger,
		queues:     queues,
		limbo:      list.New(),
	}
}

// Submit is the entry point for both locally-originated and
// just-received bundles (§4.4 "submit"). It returns the wait hint from
// the drain it triggers.
func (e *ForwardingEngine) Submit(b *bundle.Bundle, now int64) int64 {
	if b.Deadline > 0 && b.Deadline <= now {
		e.logger.Debug("dropping expired bundle src=%s dst=%s deadline=%d now=%d", b.Source, b.Destination, b.Deadline, now)
		e.notify(b, OutcomeDropped)
		return e.Drain(now)
	}

	if b.HasRoute() {
		delivered, err := e.forwardExisting(b)
		if err != nil {
			e.logger.Warn("dropping bundle: %v", err)
			e.notify(b, OutcomeDropped)
			return e.Drain(now)
		}
		if delivered {
			e.logger.Info("bundle delivered locally src=%s dst=%s", b.Source, b.Destination)
			e.notify(b, OutcomeDelivered)
			return e.Drain(now)
		}
		e.enqueue(b)
		return e.Drain(now)
	}

	routed, outcome := e.routeBundle(b, now)
	switch outcome {
	case routeOutcomeLimbo:
		e.logger.Debug("no admissible route, moving bundle to limbo src=%s dst=%s", b.Source, b.Destination)
		e.limbo.PushBack(b)
		e.notify(b, OutcomeLimbo)
	case routeOutcomeDrop:
		// structural error already logged by routeBundle
		e.notify(b, OutcomeDropped)
	case routeOutcomeSingle:
		for _, rb := range routed {
			e.enqueue(rb)
		}
		e.notify(b, OutcomeQueuedSingle)
	case routeOutcomeFanout:
		for _, rb := range routed {
			e.enqueue(rb)
		}
		e.notify(b, OutcomeQueuedFanout)
	}

	return e.Drain(now)
}

type routeOutcome int

const (
	routeOutcomeDrop routeOutcome = iota
	routeOutcomeSingle
	routeOutcomeFanout
	routeOutcomeLimbo
)

// forwardExisting handles a bundle that arrived already carrying a
// route (it is being forwarded, not originated here): find self in the
// path and set next_hop to the following node (path[index(self)+1], the
// resolved direction from §9). If self is already the last hop, the
// bundle has arrived and is delivered locally instead of re-enqueued.
func (e *ForwardingEngine) forwardExisting(b *bundle.Bundle) (delivered bool, err error) {
	path := b.AssignedRoute.Path
	idx := -1
	for i, n := range path {
		if n == e.selfID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, engineerr.New(engineerr.RouteMismatch, "self "+e.selfID+" not found in route path")
	}
	if idx+1 >= len(path) {
		return true, nil
	}
	b.NextHop = path[idx+1]
	return false, nil
}

// routeBundle implements §4.4.1: admissibility over every candidate
// route to b's destination, then either single-route selection or
// critical fanout.
func (e *ForwardingEngine) routeBundle(b *bundle.Bundle, now int64) ([]*bundle.Bundle, routeOutcome) {
	routes := e.table.Routes(b.Destination)
	if len(routes) == 0 {
		return nil, routeOutcomeLimbo
	}

	var candidates []candidate
	for i, r := range routes {
		pat, ok := e.isCandidate(b, r, now)
		if ok {
			candidates = append(candidates, candidate{route: r, pat: pat, index: i})
		}
	}
	if len(candidates) == 0 {
		return nil, routeOutcomeLimbo
	}

	if b.Critical {
		return e.criticalFanout(b, candidates), routeOutcomeFanout
	}

	best := selectBest(candidates)
	clone := b.Clone()
	clone.AssignedRoute = best.route.Clone()
	if len(best.route.Path) < 2 {
		e.logger.Warn("dropping bundle src=%s dst=%s: selected route %v has no next hop", b.Source, b.Destination, best.route.Path)
		return nil, routeOutcomeDrop
	}
	clone.NextHop = best.route.Path[1]
	return []*bundle.Bundle{clone}, routeOutcomeSingle
}

// isCandidate implements the admissibility cascade of §4.4.1,
// returning the Projected Arrival Time or (0, false) on rejection.
func (e *ForwardingEngine) isCandidate(b *bundle.Bundle, r *bundle.Route, now int64) (int64, bool) {
	if b.Deadline > 0 && b.Deadline <= now {
		return 0, false
	}
	if b.Deadline > 0 && b.Deadline <= now+r.TotalTime {
		return 0, false
	}

	var queueAvailable int64
	for _, hop := range r.Hops() {
		queueAvailable = maxInt64(queueAvailable, now)
		queueAvailable = maxInt64(queueAvailable, r.StartTime[hop])

		for _, q := range e.queuedBundlesOfPriority(b.Priority) {
			if q.AssignedRoute != nil && q.NextHop != "" {
				queueAvailable = maxInt64(queueAvailable, q.AssignedRoute.StartTime[q.NextHop])
			}
		}

		if r.EndTime[hop] <= queueAvailable {
			return 0, false
		}
	}

	if b.Deadline > 0 && b.Deadline <= queueAvailable+r.TotalTime {
		return 0, false
	}

	for _, hop := range r.Hops() {
		volume := r.Rate * (r.EndTime[hop] - r.StartTime[hop])
		if int64(b.SizeBytes) > volume {
			return 0, false
		}
	}

	return queueAvailable + r.TotalTime, true
}

func (e *ForwardingEngine) queuedBundlesOfPriority(priority int) []*bundle.Bundle {
	q, ok := e.queues[priority]
	if !ok {
		return nil
	}
	out := make([]*bundle.Bundle, 0, q.Len())
	for el := q.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*bundle.Bundle))
	}
	return out
}

// selectBest implements the deterministic tie-break cascade: smallest
// PAT, fewest hops, latest-ending route, lowest original index.
func selectBest(candidates []candidate) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.pat != best.pat {
			if c.pat < best.pat {
				best = c
			}
			continue
		}
		if len(c.route.Path) != len(best.route.Path) {
			if len(c.route.Path) < len(best.route.Path) {
				best = c
			}
			continue
		}
		if c.route.FinalEndTime() != best.route.FinalEndTime() {
			if c.route.FinalEndTime() > best.route.FinalEndTime() {
				best = c
			}
			continue
		}
		if c.index < best.index {
			best = c
		}
	}
	return best
}

// criticalFanout clones b over every admissible route, sorted by
// start_time ascending, each clone's next hop set to path[1].
func (e *ForwardingEngine) criticalFanout(b *bundle.Bundle, candidates []candidate) []*bundle.Bundle {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && routeStartTime(sorted[j].route) < routeStartTime(sorted[j-1].route); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	clones := make([]*bundle.Bundle, 0, len(sorted))
	for _, c := range sorted {
		if len(c.route.Path) < 2 {
			continue
		}
		clone := b.Clone()
		clone.AssignedRoute = c.route.Clone()
		clone.NextHop = c.route.Path[1]
		clones = append(clones, clone)
	}
	return clones
}

func routeStartTime(r *bundle.Route) int64 {
	if len(r.Path) < 2 {
		return 0
	}
	return r.StartTime[r.Path[1]]
}

func (e *ForwardingEngine) enqueue(b *bundle.Bundle) {
	q, ok := e.queues[b.Priority]
	if !ok {
		e.logger.Warn("dropping bundle with out-of-range priority %d", b.Priority)
		return
	}
	q.PushBack(b)
}

// Drain implements §4.4's drain: iterates priorities high to low,
// dropping expired heads, and sends at most one bundle per call (the
// first ready head found). Returns 0 if something was sent, a positive
// wait hint if the highest-priority blocked head needs more time, or
// -1 if every queue is empty.
func (e *ForwardingEngine) Drain(now int64) int64 {
	for p := e.priorities; p >= 1; p-- {
		q := e.queues[p]
		for q.Len() > 0 {
			front := q.Front()
			head := front.Value.(*bundle.Bundle)

			if head.Deadline > 0 && head.Deadline <= now {
				e.logger.Debug("dropping expired queued bundle priority=%d dst=%s", p, head.Destination)
				q.Remove(front)
				continue
			}

			nextHopStart := head.AssignedRoute.StartTime[head.NextHop]
			if nextHopStart > now {
				return nextHopStart - now
			}

			q.Remove(front)
			if err := e.sender.Send(head); err != nil {
				e.logger.Warn("send failed: %v", err)
			}
			return 0
		}
	}
	return -1
}

// LimboToQueue retries every bundle in limbo via Submit, per §4.4's
// "limbo is drained optimistically after any route-table refresh".
// Any route-table mutation must call this.
func (e *ForwardingEngine) LimboToQueue(now int64) {
	pending := e.limbo
	e.limbo = list.New()
	for el := pending.Front(); el != nil; el = el.Next() {
		e.Submit(el.Value.(*bundle.Bundle), now)
	}
}

// LimboLen reports how many bundles currently sit in limbo.
func (e *ForwardingEngine) LimboLen() int {
	return e.limbo.Len()
}

// QueueLen reports how many bundles sit in a given priority's queue.
func (e *ForwardingEngine) QueueLen(priority int) int {
	q, ok := e.queues[priority]
	if !ok {
		return 0
	}
	return q.Len()
}
