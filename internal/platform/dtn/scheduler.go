package dtn

import (
	"github.com/asgard/cgrsat/internal/utils"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// SchedulerObserver is notified of bundle arrivals so a caller can keep
// an audit trail or metrics in step with the receive loop without the
// scheduler itself depending on any ambient backend. Implementations
// must not block the loop; do slow I/O on a goroutine.
type SchedulerObserver interface {
	OnReceived(b *bundle.Bundle, wait int64)
}

// schedulerState names the three states of §4.5's receive loop.
type schedulerState int

const (
	stateIdle schedulerState = iota
	stateWaiting
	stateDraining
)

// datagramReceiver is the scheduler's only dependency on the
// transport, narrowed so tests can drive the state machine without a
// real socket.
type datagramReceiver interface {
	Receive() (ReceiveResult, error)
}

// ContactScheduler runs the single-threaded cooperative receive loop
// described in §4.5: block on the transport with a one-second socket
// timeout, hand incoming datagrams to the ForwardingEngine, and honor
// any wait hint it returns by arming a countdown timer before the next
// drain. now is a monotonic seconds counter anchored at node start,
// not a wall-clock reading.
type ContactScheduler struct {
	transport datagramReceiver
	engine    *ForwardingEngine
	logger    *utils.Logger
	observer  SchedulerObserver

	state schedulerState
	timer int64
	now   int64

	stop chan struct{}
}

// SetObserver registers a callback fired whenever the loop hands a
// received bundle to the engine. Passing nil disables notification.
func (s *ContactScheduler) SetObserver(observer SchedulerObserver) {
	s.observer = observer
}

// NewContactScheduler wires a transport and forwarding engine into one
// receive loop.
func NewContactScheduler(transport datagramReceiver, engine *ForwardingEngine, logger *utils.Logger) *ContactScheduler {
	return &ContactScheduler{
		transport: transport,
		engine:    engine,
		logger:    logger,
		state:     stateIdle,
		stop:      make(chan struct{}),
	}
}

// Stop signals Run's loop to exit after its current tick.
func (s *ContactScheduler) Stop() {
	close(s.stop)
}

// Run drives the loop until Stop is called. Each iteration is one
// one-second-bounded receive attempt, matching the socket timeout
// that anchors the loop's notion of elapsed time.
func (s *ContactScheduler) Run() {
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		s.tick()
	}
}

// tick runs exactly one receive-or-timeout cycle, advancing now by one
// second and applying §4.5's state transitions.
func (s *ContactScheduler) tick() {
	result, err := s.transport.Receive()
	s.now++

	if err != nil {
		s.logger.Warn("transport receive error: %v", err)
	}

	if result.Bundle != nil {
		s.engine.LimboToQueue(s.now)
		wait := s.engine.Submit(result.Bundle, s.now)
		if s.observer != nil {
			s.observer.OnReceived(result.Bundle, wait)
		}
		s.applyWaitHint(wait)
		// A new datagram does not cancel a pending wait (§4.5): if we
		// were already Waiting, stay Waiting unless the new submit
		// asked for no wait at all.
		return
	}

	// Timed out this tick: either decrement the alarm or stay idle.
	switch s.state {
	case stateWaiting:
		s.timer--
		if s.timer <= 0 {
			s.state = stateDraining
			s.drainUntilIdleOrWaiting()
		}
	case stateIdle, stateDraining:
		// nothing arrived and no alarm pending; remain Idle.
		s.state = stateIdle
	}
}

func (s *ContactScheduler) applyWaitHint(wait int64) {
	if wait > 0 {
		s.state = stateWaiting
		s.timer = wait
		return
	}
	if wait == 0 {
		s.state = stateDraining
		s.drainUntilIdleOrWaiting()
		return
	}
	s.state = stateIdle
}

// drainUntilIdleOrWaiting pops and sends per §4.4 until the queues are
// empty (-1) or a hop forces another wait (>0), re-entering Waiting in
// the latter case per §4.5's Draining state.
func (s *ContactScheduler) drainUntilIdleOrWaiting() {
	for {
		wait := s.engine.Drain(s.now)
		if wait < 0 {
			s.state = stateIdle
			return
		}
		if wait > 0 {
			s.state = stateWaiting
			s.timer = wait
			return
		}
	}
}

// Now returns the loop's monotonic seconds counter, for diagnostics.
func (s *ContactScheduler) Now() int64 {
	return s.now
}
