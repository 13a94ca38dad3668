package idmap

import (
	"testing"

	"github.com/google/uuid"
)

func TestRegisterPane(t *testing.T) {
	m := New()
	id1, id2 := uuid.New(), uuid.New()

	if got := m.RegisterPane(id1); got != 0 {
		t.Fatalf("RegisterPane(id1) = %d, want 0", got)
	}
	if got := m.RegisterPane(id2); got != 1 {
		t.Fatalf("RegisterPane(id2) = %d, want 1", got)
	}
}

func TestRegisterPaneIdempotent(t *testing.T) {
	m := New()
	id := uuid.New()

	if got := m.RegisterPane(id); got != 0 {
		t.Fatalf("first register = %d, want 0", got)
	}
	if got := m.RegisterPane(id); got != 0 {
		t.Fatalf("second register = %d, want 0 (idempotent)", got)
	}
}

func TestRegisterWindow(t *testing.T) {
	m := New()
	id1, id2 := uuid.New(), uuid.New()

	if got := m.RegisterWindow(id1); got != 0 {
		t.Fatalf("RegisterWindow(id1) = %d, want 0", got)
	}
	if got := m.RegisterWindow(id2); got != 1 {
		t.Fatalf("RegisterWindow(id2) = %d, want 1", got)
	}
}

func TestPaneAndWindowIndependentCounters(t *testing.T) {
	m := New()
	paneID, windowID := uuid.New(), uuid.New()

	if got := m.RegisterPane(paneID); got != 0 {
		t.Fatalf("pane = %d, want 0", got)
	}
	if got := m.RegisterWindow(windowID); got != 0 {
		t.Fatalf("window = %d, want 0", got)
	}
}

func TestPaneIDLookup(t *testing.T) {
	m := New()
	id := uuid.New()
	n := m.RegisterPane(id)

	got, ok := m.PaneID(n)
	if !ok || got != id {
		t.Fatalf("PaneID(%d) = %v, %v; want %v, true", n, got, ok, id)
	}
	if _, ok := m.PaneID(999); ok {
		t.Fatal("PaneID(999) should be absent")
	}
}

func TestUnregisterPane(t *testing.T) {
	m := New()
	id := uuid.New()
	n := m.RegisterPane(id)

	m.UnregisterPane(id)
	if _, ok := m.PaneID(n); ok {
		t.Fatal("PaneID should be gone after unregister")
	}
	if _, ok := m.PaneNumber(id); ok {
		t.Fatal("PaneNumber should be gone after unregister")
	}
}

func TestUnregisterNonexistentIsNoop(t *testing.T) {
	m := New()
	m.UnregisterPane(uuid.New()) // must not panic
}

func TestSequentialIDsAfterUnregister(t *testing.T) {
	m := New()
	id1, id2, id3 := uuid.New(), uuid.New(), uuid.New()

	if got := m.RegisterPane(id1); got != 0 {
		t.Fatalf("id1 = %d, want 0", got)
	}
	if got := m.RegisterPane(id2); got != 1 {
		t.Fatalf("id2 = %d, want 1", got)
	}
	m.UnregisterPane(id1)
	// Counters never reuse a retired slot.
	if got := m.RegisterPane(id3); got != 2 {
		t.Fatalf("id3 = %d, want 2 (no reuse)", got)
	}
}

func TestManyRegistrations(t *testing.T) {
	m := New()
	ids := make([]uuid.UUID, 100)
	for i := range ids {
		ids[i] = uuid.New()
	}
	for i, id := range ids {
		if got := m.RegisterPane(id); got != uint32(i) {
			t.Fatalf("RegisterPane(%d) = %d, want %d", i, got, i)
		}
	}
	for i, id := range ids {
		got, ok := m.PaneID(uint32(i))
		if !ok || got != id {
			t.Fatalf("PaneID(%d) = %v, want %v", i, got, id)
		}
	}
}

func TestWindowUnregisterAndNumberLookup(t *testing.T) {
	m := New()
	id := uuid.New()
	n := m.RegisterWindow(id)

	if got, ok := m.WindowNumber(id); !ok || got != n {
		t.Fatalf("WindowNumber = %d, %v; want %d, true", got, ok, n)
	}

	m.UnregisterWindow(id)
	if _, ok := m.WindowID(n); ok {
		t.Fatal("WindowID should be gone after unregister")
	}
	if _, ok := m.WindowNumber(id); ok {
		t.Fatal("WindowNumber should be gone after unregister")
	}
}
