package dtn

import (
	"testing"

	"github.com/asgard/cgrsat/internal/utils"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// scriptedReceiver replays a fixed sequence of ReceiveResults, one per
// tick, then times out forever.
type scriptedReceiver struct {
	results []ReceiveResult
	i       int
}

func (s *scriptedReceiver) Receive() (ReceiveResult, error) {
	if s.i >= len(s.results) {
		return ReceiveResult{TimedOut: true}, nil
	}
	r := s.results[s.i]
	s.i++
	return r, nil
}

func TestSchedulerEntersWaitingOnPositiveWaitHint(t *testing.T) {
	table := newRouteTable()
	table.routes["C"] = []*bundle.Route{
		{Path: []string{"A", "C"}, StartTime: map[string]int64{"C": 5}, EndTime: map[string]int64{"C": 20}, Distance: map[string]int64{"C": 1}, Rate: 1000, TotalTime: 1},
	}
	sender := &fakeSender{}
	engine := NewForwardingEngine("A", 1, table, sender, utils.NewLogger())

	b := bundle.New("A", "C", []byte("x"), 1)
	b.SizeBytes = 10

	recv := &scriptedReceiver{results: []ReceiveResult{{Bundle: b}}}
	sched := NewContactScheduler(recv, engine, utils.NewLogger())

	sched.tick() // delivers b, now=1, wait hint should be 4 (start 5 - now 1)
	if sched.state != stateWaiting {
		t.Fatalf("expected Waiting state, got %v", sched.state)
	}
	if sched.timer != 4 {
		t.Fatalf("timer = %d, want 4", sched.timer)
	}

	for i := 0; i < 3; i++ {
		sched.tick()
	}
	if sched.state != stateWaiting {
		t.Fatalf("expected still Waiting before timer expiry, got %v", sched.state)
	}

	sched.tick() // timer hits 0, should drain and send
	if len(sender.sent) != 1 {
		t.Fatalf("expected the bundle sent once the alarm fired, got %d sends", len(sender.sent))
	}
	if sched.state != stateIdle {
		t.Fatalf("expected Idle after a successful drain with empty queues, got %v", sched.state)
	}
}

func TestSchedulerStaysIdleOnRepeatedTimeouts(t *testing.T) {
	table := newRouteTable()
	sender := &fakeSender{}
	engine := NewForwardingEngine("A", 1, table, sender, utils.NewLogger())
	recv := &scriptedReceiver{}
	sched := NewContactScheduler(recv, engine, utils.NewLogger())

	for i := 0; i < 5; i++ {
		sched.tick()
	}
	if sched.state != stateIdle {
		t.Fatalf("expected Idle with nothing arriving, got %v", sched.state)
	}
	if sched.Now() != 5 {
		t.Fatalf("Now() = %d, want 5", sched.Now())
	}
}
