// Package idmap maps opaque UUID-like identifiers to stable, sequential
// small integers used on the wire as tmux-style %N (pane) and @N (window)
// targets.
//
// Ported from the original Rust daemon's server/id_map.rs: two independent
// monotonic counters, idempotent registration, and retire-never-reuse
// unregistration.
package idmap

import "github.com/google/uuid"

// IdMap holds the bidirectional pane/window mappings.
type IdMap struct {
	nextPane   uint32
	nextWindow uint32

	paneMap   map[uuid.UUID]uint32
	windowMap map[uuid.UUID]uint32

	reversePane   map[uint32]uuid.UUID
	reverseWindow map[uint32]uuid.UUID
}

// New returns an empty IdMap with both counters starting at 0.
func New() *IdMap {
	return &IdMap{
		paneMap:       make(map[uuid.UUID]uint32),
		windowMap:     make(map[uuid.UUID]uint32),
		reversePane:   make(map[uint32]uuid.UUID),
		reverseWindow: make(map[uint32]uuid.UUID),
	}
}

// RegisterPane returns the sequential %N id for a pane's TabId, allocating
// a fresh one the first time this id is seen. Idempotent on repeat calls.
func (m *IdMap) RegisterPane(id uuid.UUID) uint32 {
	if n, ok := m.paneMap[id]; ok {
		return n
	}
	n := m.nextPane
	m.nextPane++
	m.paneMap[id] = n
	m.reversePane[n] = id
	return n
}

// RegisterWindow returns the sequential @N id for a window's WindowId,
// allocating a fresh one the first time this id is seen. Idempotent on
// repeat calls.
func (m *IdMap) RegisterWindow(id uuid.UUID) uint32 {
	if n, ok := m.windowMap[id]; ok {
		return n
	}
	n := m.nextWindow
	m.nextWindow++
	m.windowMap[id] = n
	m.reverseWindow[n] = id
	return n
}

// PaneID resolves a sequential %N back to its TabId.
func (m *IdMap) PaneID(n uint32) (uuid.UUID, bool) {
	id, ok := m.reversePane[n]
	return id, ok
}

// WindowID resolves a sequential @N back to its WindowId.
func (m *IdMap) WindowID(n uint32) (uuid.UUID, bool) {
	id, ok := m.reverseWindow[n]
	return id, ok
}

// PaneNumber returns the %N assigned to a TabId, if registered.
func (m *IdMap) PaneNumber(id uuid.UUID) (uint32, bool) {
	n, ok := m.paneMap[id]
	return n, ok
}

// WindowNumber returns the @N assigned to a WindowId, if registered.
func (m *IdMap) WindowNumber(id uuid.UUID) (uint32, bool) {
	n, ok := m.windowMap[id]
	return n, ok
}

// UnregisterPane removes both directions of a pane mapping. The counter is
// never decremented or reused; unregistering an unknown id is a no-op.
func (m *IdMap) UnregisterPane(id uuid.UUID) {
	if n, ok := m.paneMap[id]; ok {
		delete(m.paneMap, id)
		delete(m.reversePane, n)
	}
}

// UnregisterWindow removes both directions of a window mapping. The
// counter is never decremented or reused; unregistering an unknown id is a
// no-op.
func (m *IdMap) UnregisterWindow(id uuid.UUID) {
	if n, ok := m.windowMap[id]; ok {
		delete(m.windowMap, id)
		delete(m.reverseWindow, n)
	}
}
