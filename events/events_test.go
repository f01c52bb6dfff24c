package events

import "testing"

func TestDrainIsIdempotentWithoutInterveningEmit(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})

	first := buf.Drain()
	if len(first) != 1 {
		t.Fatalf("first Drain() = %v, want 1 event", first)
	}

	second := buf.Drain()
	if len(second) != 0 {
		t.Fatalf("second Drain() = %v, want empty", second)
	}
}

func TestDrainPreservesEmissionOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})
	buf.Emit(Event{Kind: ProjectileLaunched, Step: 1, Actor: 3})
	buf.Emit(Event{Kind: ProjectileImpact, Step: 1, Actor: 3})

	got := buf.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain() = %v, want 3 events", got)
	}
	want := []Kind{AgentCollision, ProjectileLaunched, ProjectileImpact}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("event[%d].Kind = %v, want %v", i, got[i].Kind, k)
		}
	}
}

func TestDrainReturnsACopy(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})
	got := buf.Drain()
	got[0].Actor = 99

	buf.Emit(Event{Kind: AgentCollision, Step: 2, Actor: 5, Target: 6})
	second := buf.Drain()
	if second[0].Actor != 5 {
		t.Errorf("mutating a drained slice affected the buffer: got actor %d", second[0].Actor)
	}
}

func TestPeekDoesNotDrain(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})

	peeked := buf.Peek()
	if len(peeked) != 1 {
		t.Fatalf("Peek() = %v, want 1 event", peeked)
	}
	if buf.Len() != 1 {
		t.Errorf("buffer length after Peek = %d, want 1 (unchanged)", buf.Len())
	}

	drained := buf.Drain()
	if len(drained) != 1 {
		t.Errorf("Drain() after Peek = %v, want the same 1 event still present", drained)
	}
}

func TestPeekReturnsACopy(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})

	peeked := buf.Peek()
	peeked[0].Actor = 99

	again := buf.Peek()
	if again[0].Actor != 1 {
		t.Errorf("mutating a peeked slice affected the buffer: got actor %d", again[0].Actor)
	}
}

func TestRestoreReplacesContents(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})

	restored := []Event{
		{Kind: ProjectileLaunched, Step: 5, Actor: 9},
		{Kind: ProjectileImpact, Step: 5, Actor: 9},
	}
	buf.Restore(restored)

	got := buf.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() after Restore = %v, want 2 events", got)
	}
	if got[0].Kind != ProjectileLaunched || got[1].Kind != ProjectileImpact {
		t.Errorf("restored events = %v, want [ProjectileLaunched, ProjectileImpact]", got)
	}
}

func TestRestoreWithEmptySliceClearsBuffer(t *testing.T) {
	var buf Buffer
	buf.Emit(Event{Kind: AgentCollision, Step: 1, Actor: 1, Target: 2})
	buf.Restore(nil)

	if got := buf.Drain(); len(got) != 0 {
		t.Errorf("Drain() after Restore(nil) = %v, want empty", got)
	}
}
