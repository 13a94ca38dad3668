// Package sessionstore flattens a workspace.ServerState into the on-disk
// Session document (spec §6) and round-trips it as JSON.
//
// Grounded on _examples/original_source/crates/pane-daemon/src/session/mod.rs's
// session_from_state: one TabConfig per tab (with trailing-blank-trimmed
// scrollback), one WindowConfig per window, one WorkspaceConfig per
// workspace. The document format itself is out of scope (SPEC_FULL.md §1),
// so this package only needs to reproduce the shape, not a specific
// on-disk layout beyond "JSON under XDG data home".
package sessionstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"

	"github.com/lucasilverentand/pane/internal/layout"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/workspace"
)

// CurrentVersion is the document schema version, matching the original
// source's Session{version: 2}.
const CurrentVersion = 2

// TabConfig is one persisted pane: its spawn parameters plus scrollback.
type TabConfig struct {
	ID         uuid.UUID         `json:"id"`
	Kind       string            `json:"kind"`
	Title      string            `json:"title"`
	Command    string            `json:"command"`
	Cwd        string            `json:"cwd"`
	Env        map[string]string `json:"env"`
	Scrollback []string          `json:"scrollback"`
}

// WindowConfig is one persisted window (a layout leaf's tab group).
type WindowConfig struct {
	ID        uuid.UUID   `json:"id"`
	Tabs      []TabConfig `json:"tabs"`
	ActiveTab int         `json:"active_tab"`
}

// WorkspaceConfig is one persisted workspace.
type WorkspaceConfig struct {
	Name        string        `json:"name"`
	Layout      *layout.Node  `json:"layout"`
	Groups      []WindowConfig `json:"groups"`
	ActiveGroup uuid.UUID     `json:"active_group"`
	SyncPanes   bool          `json:"sync_panes"`
}

// Session is the full on-disk document written on shutdown and major state
// changes.
type Session struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
	Workspaces      []WorkspaceConfig `json:"workspaces"`
	ActiveWorkspace int               `json:"active_workspace"`
}

// FromState flattens a live ServerState into a persistable Session
// document, trimming trailing blank scrollback lines per tab the way the
// original session_from_state does.
func FromState(state *workspace.ServerState, now time.Time) Session {
	workspaces := make([]WorkspaceConfig, 0, len(state.Workspaces))
	for _, ws := range state.Workspaces {
		groups := make([]WindowConfig, 0, len(ws.Groups))
		for id, win := range ws.Groups {
			tabs := make([]TabConfig, 0, len(win.Tabs))
			for _, tab := range win.Tabs {
				tabs = append(tabs, tabConfigFromTab(tab))
			}
			groups = append(groups, WindowConfig{
				ID:        id,
				Tabs:      tabs,
				ActiveTab: win.ActiveTab,
			})
		}
		workspaces = append(workspaces, WorkspaceConfig{
			Name:        ws.Name,
			Layout:      ws.Layout,
			Groups:      groups,
			ActiveGroup: ws.ActiveGroup,
			SyncPanes:   ws.SyncPanes,
		})
	}

	return Session{
		ID:              state.SessionID,
		Name:            state.SessionName,
		CreatedAt:       state.SessionCreatedAt,
		UpdatedAt:       now,
		Version:         CurrentVersion,
		Workspaces:      workspaces,
		ActiveWorkspace: state.ActiveWorkspace,
	}
}

func tabConfigFromTab(tab *pane.Tab) TabConfig {
	var scrollback []string
	if tab.Screen != nil {
		scrollback = append(tab.Screen.ScrollbackLines(), tab.Screen.Lines()...)
	}
	for len(scrollback) > 0 && strings.TrimSpace(scrollback[len(scrollback)-1]) == "" {
		scrollback = scrollback[:len(scrollback)-1]
	}

	return TabConfig{
		ID:         tab.ID,
		Kind:       tab.Kind.Label(),
		Title:      tab.Title,
		Command:    tab.Command,
		Cwd:        tab.Cwd,
		Env:        map[string]string{},
		Scrollback: scrollback,
	}
}

// Path resolves the on-disk path for a named session's document.
func Path(sessionName string) (string, error) {
	p, err := xdg.DataFile(filepath.Join("pane", sessionName+".json"))
	if err != nil {
		return "", fmt.Errorf("resolve session store path: %w", err)
	}
	return p, nil
}

// Save writes sess as JSON to its resolved path, creating parent
// directories as needed.
func Save(sess Session) error {
	path, err := Path(sess.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create session store directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads and parses a named session's persisted document. Returns
// (Session{}, false, nil) if no document exists yet for this name.
func Load(sessionName string) (Session, bool, error) {
	path, err := Path(sessionName)
	if err != nil {
		return Session{}, false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("parse session file: %w", err)
	}
	return sess, true, nil
}
