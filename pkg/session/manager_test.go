package session

import (
	"sync"
	"testing"
	"time"
)

func TestCreateUniqueIds(t *testing.T) {
	m := NewManager(Config{})

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := m.Create()
		if id == "" {
			t.Fatal("Create returned empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}

	if m.Count() != 100 {
		t.Errorf("Count = %d, want 100", m.Count())
	}
}

func TestFreshSessionState(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	s, ok := m.Get(id)
	if !ok {
		t.Fatal("Get failed for fresh session")
	}
	if s.IsProcessing {
		t.Error("fresh session has IsProcessing set")
	}
	if s.IsAborted {
		t.Error("fresh session has IsAborted set")
	}
	if s.Memory == nil {
		t.Error("fresh session has nil memory")
	}
	if s.Memory.Len() != 0 {
		t.Errorf("fresh memory has %d messages, want 0", s.Memory.Len())
	}
}

func TestGetUnknownId(t *testing.T) {
	m := NewManager(Config{})

	if _, ok := m.Get("nope"); ok {
		t.Error("Get succeeded for unknown id")
	}
	if m.IsProcessing("nope") {
		t.Error("IsProcessing true for unknown id")
	}
	if m.IsAborted("nope") {
		t.Error("IsAborted true for unknown id")
	}
}

func TestDelete(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	if !m.Delete(id) {
		t.Fatal("Delete failed for existing session")
	}
	if _, ok := m.Get(id); ok {
		t.Error("Get succeeded after delete")
	}
	if m.Delete(id) {
		t.Error("second Delete reported success")
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
}

func TestAbortSemantics(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	if m.Abort("unknown") {
		t.Error("Abort succeeded for unknown id")
	}

	if !m.Abort(id) {
		t.Fatal("Abort failed for existing session")
	}
	if !m.IsAborted(id) {
		t.Error("IsAborted false after Abort")
	}

	// Abort is idempotent.
	if !m.Abort(id) {
		t.Error("second Abort failed")
	}

	if !m.ResetAbort(id) {
		t.Fatal("ResetAbort failed for existing session")
	}
	if m.IsAborted(id) {
		t.Error("IsAborted true after ResetAbort")
	}
	if m.ResetAbort("unknown") {
		t.Error("ResetAbort succeeded for unknown id")
	}
}

func TestBeginTurnLock(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	if m.BeginTurn("unknown") {
		t.Error("BeginTurn succeeded for unknown id")
	}

	if !m.BeginTurn(id) {
		t.Fatal("BeginTurn failed for idle session")
	}
	if !m.IsProcessing(id) {
		t.Error("IsProcessing false during turn")
	}

	if m.BeginTurn(id) {
		t.Error("BeginTurn succeeded while turn in flight")
	}

	m.EndTurn(id)
	if m.IsProcessing(id) {
		t.Error("IsProcessing true after EndTurn")
	}
	if !m.BeginTurn(id) {
		t.Error("BeginTurn failed after EndTurn")
	}
}

func TestBeginTurnConcurrent(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.BeginTurn(id) {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("BeginTurn won by %d goroutines, want exactly 1", won)
	}
}

func TestGetOrCreateMemory(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	gotId, mem := m.GetOrCreateMemory(id)
	if gotId != id {
		t.Errorf("GetOrCreateMemory id = %s, want %s", gotId, id)
	}
	if mem == nil {
		t.Fatal("nil memory for existing session")
	}

	replacementId, mem2 := m.GetOrCreateMemory("unknown")
	if replacementId == "unknown" || replacementId == "" {
		t.Errorf("replacement id = %q, want a fresh uuid", replacementId)
	}
	if mem2 == nil {
		t.Fatal("nil memory for replacement session")
	}
	if _, ok := m.Get(replacementId); !ok {
		t.Error("replacement session not stored")
	}
}

func TestSweepExpired(t *testing.T) {
	m := NewManager(Config{Timeout: time.Hour})

	base := time.Now()
	m.now = func() time.Time { return base }

	stale := m.Create()
	fresh := m.Create()

	// Age only the stale session past the timeout.
	m.now = func() time.Time { return base.Add(30 * time.Minute) }
	m.Get(fresh)

	m.now = func() time.Time { return base.Add(61 * time.Minute) }

	if n := m.SweepExpired(); n != 1 {
		t.Fatalf("SweepExpired = %d, want 1", n)
	}
	if _, ok := m.Get(stale); ok {
		t.Error("stale session survived the sweep")
	}
	if _, ok := m.Get(fresh); !ok {
		t.Error("fresh session was swept")
	}

	// Get touched fresh above, so an immediate re-sweep removes nothing.
	if n := m.SweepExpired(); n != 0 {
		t.Errorf("second SweepExpired = %d, want 0", n)
	}
}

func TestSweepPinsProcessingSessions(t *testing.T) {
	m := NewManager(Config{Timeout: time.Minute})

	base := time.Now()
	m.now = func() time.Time { return base }

	busy := m.Create()
	idle := m.Create()
	if !m.BeginTurn(busy) {
		t.Fatal("BeginTurn failed")
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }

	if n := m.SweepExpired(); n != 1 {
		t.Fatalf("SweepExpired = %d, want 1", n)
	}
	if _, ok := m.Get(busy); !ok {
		t.Error("in-flight session was swept")
	}
	if _, ok := m.Get(idle); ok {
		t.Error("idle session survived the sweep")
	}

	// Once the turn ends, and the session goes idle again, it is fair game.
	m.EndTurn(busy)
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	if n := m.SweepExpired(); n != 1 {
		t.Errorf("post-turn SweepExpired = %d, want 1", n)
	}
}

func TestGetTouchesLastAccess(t *testing.T) {
	m := NewManager(Config{Timeout: time.Hour})

	base := time.Now()
	m.now = func() time.Time { return base }
	id := m.Create()

	m.now = func() time.Time { return base.Add(50 * time.Minute) }
	m.Get(id)

	// 70 minutes after creation but only 20 after the last touch.
	m.now = func() time.Time { return base.Add(70 * time.Minute) }
	if n := m.SweepExpired(); n != 0 {
		t.Errorf("SweepExpired = %d, want 0 after touch", n)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := NewManager(Config{})
	id := m.Create()

	s, _ := m.Get(id)
	s.IsAborted = true

	if m.IsAborted(id) {
		t.Error("mutating a Get snapshot leaked into the store")
	}
}
