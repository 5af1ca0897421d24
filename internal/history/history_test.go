package history

import "testing"

func TestMemoryStore_AppendAndTurns(t *testing.T) {
	s := NewMemoryStore(3)
	s.Append("s1", Turn{Question: "q1", Response: "r1"})
	s.Append("s1", Turn{Question: "q2", Response: "r2"})

	turns := s.Turns("s1")
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Question != "q1" || turns[1].Question != "q2" {
		t.Errorf("turns out of order: %+v", turns)
	}
}

func TestMemoryStore_EvictsOldestTurnBeyondCapacity(t *testing.T) {
	s := NewMemoryStore(2)
	s.Append("s1", Turn{Question: "q1"})
	s.Append("s1", Turn{Question: "q2"})
	s.Append("s1", Turn{Question: "q3"})

	turns := s.Turns("s1")
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Question != "q2" || turns[1].Question != "q3" {
		t.Errorf("expected oldest turn evicted, got %+v", turns)
	}
}

func TestMemoryStore_SessionsAreIndependent(t *testing.T) {
	s := NewMemoryStore(10)
	s.Append("s1", Turn{Question: "q1"})
	s.Append("s2", Turn{Question: "q2"})

	if len(s.Turns("s1")) != 1 || len(s.Turns("s2")) != 1 {
		t.Fatal("expected independent per-session history")
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore(10)
	s.Append("s1", Turn{Question: "q1"})
	s.Clear("s1")

	if turns := s.Turns("s1"); len(turns) != 0 {
		t.Errorf("expected cleared session to be empty, got %+v", turns)
	}
}

func TestMemoryStore_DefaultsMaxTurns(t *testing.T) {
	s := NewMemoryStore(0)
	if s.maxTurns != 10 {
		t.Errorf("maxTurns = %d, want 10", s.maxTurns)
	}
}
