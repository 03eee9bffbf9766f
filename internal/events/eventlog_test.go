package events

import (
	"errors"
	"sync"
	"testing"
)

type memPersister struct {
	mu     sync.Mutex
	events []GameEvent
	fail   bool
}

func (m *memPersister) Append(e GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.events = append(m.events, e)
	return nil
}

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	el := NewEventLog(0)
	var last uint64
	for i := 0; i < 5; i++ {
		e := el.Append(GameEvent{Type: EventTypeCrimeCommitted, ActorID: "P1"})
		if e.Seq <= last {
			t.Fatalf("seq not increasing: %d after %d", e.Seq, last)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Fatalf("expected ID and timestamp to be stamped")
		}
		last = e.Seq
	}
	if el.LastSeq() != 5 {
		t.Errorf("expected last seq 5, got %d", el.LastSeq())
	}
}

func TestRetentionDropsOldest(t *testing.T) {
	el := NewEventLog(3)
	for i := 0; i < 10; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick, ActorID: SystemActor})
	}
	if el.Len() != 3 {
		t.Fatalf("expected 3 retained events, got %d", el.Len())
	}
	recent := el.Recent(0)
	if recent[0].Seq != 8 || recent[2].Seq != 10 {
		t.Errorf("expected seqs 8..10, got %d..%d", recent[0].Seq, recent[2].Seq)
	}
	if el.LastSeq() != 10 {
		t.Errorf("sequence must survive trimming, got %d", el.LastSeq())
	}
}

func TestSinceAndRecent(t *testing.T) {
	el := NewEventLog(0)
	for i := 0; i < 6; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick})
	}
	got := el.Since(4)
	if len(got) != 2 || got[0].Seq != 5 || got[1].Seq != 6 {
		t.Errorf("unexpected Since(4): %+v", got)
	}
	if len(el.Since(6)) != 0 {
		t.Errorf("expected nothing after last seq")
	}
	if r := el.Recent(2); len(r) != 2 || r[1].Seq != 6 {
		t.Errorf("unexpected Recent(2): %+v", r)
	}
}

func TestGetByActorIncludesTargets(t *testing.T) {
	el := NewEventLog(0)
	el.Append(GameEvent{Type: EventTypeCrimeCommitted, ActorID: "P1"})
	el.Append(GameEvent{Type: EventTypeJailed, ActorID: SystemActor, TargetID: "P1"})
	el.Append(GameEvent{Type: EventTypeCrimeCommitted, ActorID: "P2"})
	if got := el.GetByActor("P1"); len(got) != 2 {
		t.Errorf("expected 2 events for P1, got %d", len(got))
	}
}

func TestRestoreContinuesSequence(t *testing.T) {
	el := NewEventLog(0)
	el.Restore(41)
	if e := el.Append(GameEvent{Type: EventTypeTimeTick}); e.Seq != 42 {
		t.Errorf("expected seq 42 after restore, got %d", e.Seq)
	}
}

func TestPersisterReceivesEvents(t *testing.T) {
	el := NewEventLog(0)
	p := &memPersister{}
	el.AttachPersister(p, 4, nil)
	for i := 0; i < 10; i++ {
		el.Append(GameEvent{Type: EventTypeTimeTick})
	}
	el.Close()
	if len(p.events) != 10 {
		t.Fatalf("expected 10 persisted events, got %d", len(p.events))
	}
	for i, e := range p.events {
		if e.Seq != uint64(i+1) {
			t.Fatalf("persisted out of order at %d: seq %d", i, e.Seq)
		}
	}
}

func TestPersisterErrorsAreReported(t *testing.T) {
	el := NewEventLog(0)
	var mu sync.Mutex
	failures := 0
	el.AttachPersister(&memPersister{fail: true}, 1, func(GameEvent, error) {
		mu.Lock()
		failures++
		mu.Unlock()
	})
	el.Append(GameEvent{Type: EventTypeTimeTick})
	el.Append(GameEvent{Type: EventTypeTimeTick})
	el.Close()
	if failures != 2 {
		t.Errorf("expected 2 reported failures, got %d", failures)
	}
}
