// Package workspace implements Workspace and ServerState from spec §3: the
// authoritative, single-owner application state the daemon mutates under
// one mutex per operation.
//
// Grounded on _examples/original_source/crates/pane-daemon/src/workspace.rs
// (Workspace, FloatingWindow, group bookkeeping, leaf_min_sizes pruning) and
// session/mod.rs (the ServerState shape referenced from session_from_state,
// since state.rs itself was not part of the retrieved source set).
package workspace

import (
	"time"

	"github.com/google/uuid"

	"github.com/lucasilverentand/pane/internal/idmap"
	"github.com/lucasilverentand/pane/internal/layout"
	"github.com/lucasilverentand/pane/internal/pane"
)

// FloatingWindow is a window positioned above the tiled layout.
type FloatingWindow struct {
	ID     uuid.UUID
	X, Y   int
	Width  int
	Height int
}

// MinSize is an advisory minimum size for a layout leaf.
type MinSize struct {
	Cols, Rows int
}

// Workspace is a named tiling layout of Windows plus the side-state that
// rides along with it: per-leaf minimum sizes, sync-panes, zoom, and
// floating overlays.
type Workspace struct {
	Name   string
	Layout *layout.Node

	// Groups maps a layout leaf (a WindowId) to its Window. The Rust source
	// calls a Window a "group" in this context; we keep the field name
	// Groups to mirror it, since layout leaves really do address Windows.
	Groups      map[uuid.UUID]*pane.Window
	ActiveGroup uuid.UUID

	LeafMinSizes map[uuid.UUID]MinSize
	SyncPanes    bool
	ZoomedWindow *uuid.UUID
	SavedRatios  *layout.Node

	FloatingWindows []FloatingWindow
}

// New creates a Workspace with a single Window as its sole layout leaf.
func New(name string, group *pane.Window) *Workspace {
	groups := make(map[uuid.UUID]*pane.Window)
	groups[group.ID] = group
	return &Workspace{
		Name:         name,
		Layout:       layout.NewLeaf(group.ID),
		Groups:       groups,
		ActiveGroup:  group.ID,
		LeafMinSizes: make(map[uuid.UUID]MinSize),
	}
}

// ActiveGroupWindow returns the Window the workspace currently focuses.
func (w *Workspace) ActiveGroupWindow() *pane.Window {
	return w.Groups[w.ActiveGroup]
}

// GroupIDs returns the WindowIds that make up the layout, in tree order.
func (w *Workspace) GroupIDs() []uuid.UUID {
	return layout.PaneIDs(w.Layout)
}

// PruneLeafMinSizes drops entries for WindowIds no longer present in the
// layout, called after any structural change (split/close).
func (w *Workspace) PruneLeafMinSizes() {
	live := make(map[uuid.UUID]bool)
	for _, id := range w.GroupIDs() {
		live[id] = true
	}
	for id := range w.LeafMinSizes {
		if !live[id] {
			delete(w.LeafMinSizes, id)
		}
	}
}

// RemoveGroup deletes a Window from Groups and prunes leaf-min-sizes. It
// does not touch the layout tree — callers run layout.ClosePane first and
// pass the Window's id here once it is no longer referenced.
func (w *Workspace) RemoveGroup(id uuid.UUID) {
	delete(w.Groups, id)
	if w.ZoomedWindow != nil && *w.ZoomedWindow == id {
		w.ZoomedWindow = nil
		w.SavedRatios = nil
	}
	w.PruneLeafMinSizes()
}

// KillAllTabs terminates every Tab in every Window of the workspace, used
// when the Workspace itself is deleted.
func (w *Workspace) KillAllTabs() {
	for _, g := range w.Groups {
		for _, t := range g.Tabs {
			_ = t.Close()
		}
	}
}

// ClientID identifies one attached client connection.
type ClientID uuid.UUID

// ClientInfo is per-connection state tracked by the daemon: the client's
// reported terminal size and which workspace it is viewing.
type ClientInfo struct {
	Width, Height   int
	ActiveWorkspace int
}

// ServerState is the single authoritative application state a daemon
// instance owns. Exactly one goroutine mutates it at a time, serialized by
// the caller (internal/daemon) through an exclusive mutex held briefly
// across each command execution or PTY-output ingestion, per spec §5.
type ServerState struct {
	SessionID        uuid.UUID
	SessionName      string
	SessionCreatedAt time.Time

	Workspaces      []*Workspace
	ActiveWorkspace int

	Clients map[ClientID]*ClientInfo

	IDMap *idmap.IdMap
}

// NewState creates a ServerState whose only Workspace is initial, with a
// fresh session id, no clients, and an empty IdMap.
func NewState(sessionName string, initial *Workspace) *ServerState {
	return &ServerState{
		SessionID:        uuid.New(),
		SessionName:      sessionName,
		SessionCreatedAt: time.Now(),
		Workspaces:       []*Workspace{initial},
		ActiveWorkspace:  0,
		Clients:          make(map[ClientID]*ClientInfo),
		IDMap:            idmap.New(),
	}
}

// ActiveWorkspaceState returns the workspace currently active for the
// daemon as a whole (the default target for commands with no explicit -t).
func (s *ServerState) ActiveWorkspaceState() *Workspace {
	if s.ActiveWorkspace < 0 || s.ActiveWorkspace >= len(s.Workspaces) {
		return nil
	}
	return s.Workspaces[s.ActiveWorkspace]
}

// FindTab searches every workspace/window for a Tab by id.
func (s *ServerState) FindTab(id uuid.UUID) (*pane.Tab, *pane.Window, *Workspace, bool) {
	for _, ws := range s.Workspaces {
		for _, win := range ws.Groups {
			for _, t := range win.Tabs {
				if t.ID == id {
					return t, win, ws, true
				}
			}
		}
	}
	return nil, nil, nil, false
}

// FindWindow searches every workspace for a Window by id.
func (s *ServerState) FindWindow(id uuid.UUID) (*pane.Window, *Workspace, bool) {
	for _, ws := range s.Workspaces {
		if win, ok := ws.Groups[id]; ok {
			return win, ws, true
		}
	}
	return nil, nil, false
}

// RemoveWorkspace deletes a workspace by index, killing all its tabs first,
// and clamps ActiveWorkspace to stay in range.
func (s *ServerState) RemoveWorkspace(index int) bool {
	if index < 0 || index >= len(s.Workspaces) {
		return false
	}
	s.Workspaces[index].KillAllTabs()
	s.Workspaces = append(s.Workspaces[:index], s.Workspaces[index+1:]...)
	if s.ActiveWorkspace >= len(s.Workspaces) {
		s.ActiveWorkspace = len(s.Workspaces) - 1
	}
	if s.ActiveWorkspace < 0 {
		s.ActiveWorkspace = 0
	}
	return true
}
