// Package pane implements the Tab and Window types from spec §3: a Tab
// owns one PTY-backed child process and its screen buffer, a Window is an
// ordered group of Tabs with one active at a time.
//
// PTY handling is grounded on the teacher's internal/terminal/window.go
// (xpty.NewPty/Start/Resize/Read/Write/Close), restructured around the
// daemon's broadcast model instead of a local bubbletea render loop. Spawn
// failure and the TabKind taxonomy are grounded on
// _examples/original_source/crates/pane-daemon/src/window/pty.rs and
// crates/pane-protocol/src/window_types.rs.
package pane

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	xpty "github.com/charmbracelet/x/xpty"

	"github.com/lucasilverentand/pane/internal/perrors"
	"github.com/lucasilverentand/pane/internal/vtscreen"
)

// Kind classifies a Tab for status-bar display and format-string expansion.
type Kind int

const (
	KindShell Kind = iota
	KindAgent
	KindNvim
	KindDevServer
)

// Label returns the kind's short display name, as stored in snapshots and
// saved sessions.
func (k Kind) Label() string {
	switch k {
	case KindShell:
		return "shell"
	case KindAgent:
		return "claude"
	case KindNvim:
		return "nvim"
	case KindDevServer:
		return "server"
	default:
		return "shell"
	}
}

// OutputFunc is invoked with a Tab's raw PTY bytes as they arrive, so the
// daemon can fan them out to attached clients.
type OutputFunc func(id uuid.UUID, data []byte)

// ExitFunc is invoked once a Tab's child process terminates.
type ExitFunc func(id uuid.UUID)

// Tab owns a single PTY-backed process: its screen buffer, the spawned
// command, and liveness state.
type Tab struct {
	ID      uuid.UUID
	Kind    Kind
	Title   string
	Command string
	Cwd     string

	Screen *vtscreen.Screen

	pty     xpty.Pty
	cmd     *exec.Cmd
	exited  atomic.Bool
	mu      sync.Mutex
	closeCh chan struct{}
}

// SpawnOptions configures a new Tab's child process.
type SpawnOptions struct {
	Kind    Kind
	Command string // defaults to $SHELL, else the first of /bin/bash, /bin/zsh, /bin/sh that exists
	Args    []string
	Cwd     string
	Width   int
	Height  int
}

// NewTab spawns a PTY-backed child process. On spawn failure it still
// returns a usable Tab — an "error tab" whose screen buffer contains the
// failure message instead of propagating the error to the caller, matching
// the teacher's NewWindow behavior of never returning a broken window to
// the layout tree.
func NewTab(opts SpawnOptions, onOutput OutputFunc, onExit ExitFunc) *Tab {
	id := uuid.New()
	width, height := opts.Width, opts.Height
	if width < 1 {
		width = 80
	}
	if height < 1 {
		height = 24
	}

	t := &Tab{
		ID:      id,
		Kind:    opts.Kind,
		Command: opts.Command,
		Cwd:     opts.Cwd,
		Screen:  vtscreen.New(width, height),
		closeCh: make(chan struct{}),
	}

	shell := opts.Command
	if shell == "" {
		shell = detectShell()
	}
	t.Title = shell

	cmd := exec.Command(shell, opts.Args...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"PANE=1",
		"PANE_PANE="+id.String(),
	)

	ptyInst, err := xpty.NewPty(width, height)
	if err != nil {
		t.writeError(fmt.Errorf("open pty: %w", err))
		t.exited.Store(true)
		return t
	}
	if err := ptyInst.Start(cmd); err != nil {
		_ = ptyInst.Close()
		t.writeError(&perrors.SpawnError{What: shell, Err: err})
		t.exited.Store(true)
		return t
	}
	_ = ptyInst.Resize(width, height)

	t.pty = ptyInst
	t.cmd = cmd

	go t.readLoop(onOutput)
	go t.waitLoop(onExit)

	return t
}

func (t *Tab) writeError(err error) {
	msg := err.Error() + "\r\n"
	_, _ = t.Screen.Write([]byte(msg))
}

func (t *Tab) readLoop(onOutput OutputFunc) {
	buf := make([]byte, 65536)
	for {
		n, err := t.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			_, _ = t.Screen.Write(chunk)
			if onOutput != nil {
				onOutput(t.ID, chunk)
			}
		}
		if err != nil {
			if err != io.EOF {
				_ = err
			}
			return
		}
	}
}

func (t *Tab) waitLoop(onExit ExitFunc) {
	if t.cmd != nil {
		_ = t.cmd.Wait()
	}
	t.exited.Store(true)
	close(t.closeCh)
	if onExit != nil {
		onExit(t.ID)
	}
}

// Write sends key/paste bytes to the child's stdin.
func (t *Tab) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pty == nil {
		return &perrors.IoError{Op: "write pty", Err: io.ErrClosedPipe}
	}
	_, err := t.pty.Write(data)
	if err != nil {
		return &perrors.IoError{Op: "write pty", Err: err}
	}
	return nil
}

// Resize propagates a new terminal size to both the PTY and screen buffer.
func (t *Tab) Resize(width, height int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Screen.Resize(width, height)
	if t.pty == nil {
		return nil
	}
	if err := t.pty.Resize(width, height); err != nil {
		return &perrors.IoError{Op: "resize pty", Err: err}
	}
	return nil
}

// Exited reports whether the child process has terminated.
func (t *Tab) Exited() bool {
	return t.exited.Load()
}

// Close terminates the child process and releases the PTY.
func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pty == nil {
		return nil
	}
	err := t.pty.Close()
	t.pty = nil
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	if err != nil {
		return &perrors.IoError{Op: "close pty", Err: err}
	}
	return nil
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	for _, candidate := range []string{"/bin/bash", "/bin/zsh", "/bin/sh"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "/bin/sh"
}

// Window is an ordered group of Tabs with exactly one active at a time.
// The invariant 0 <= ActiveTab < len(Tabs) must hold whenever len(Tabs) > 0.
type Window struct {
	ID        uuid.UUID
	Tabs      []*Tab
	ActiveTab int
}

// NewWindow creates a Window containing a single Tab.
func NewWindow(first *Tab) *Window {
	return &Window{ID: uuid.New(), Tabs: []*Tab{first}, ActiveTab: 0}
}

// Active returns the currently focused Tab, or nil if the Window is empty.
func (w *Window) Active() *Tab {
	if w.ActiveTab < 0 || w.ActiveTab >= len(w.Tabs) {
		return nil
	}
	return w.Tabs[w.ActiveTab]
}

// AddTab appends a Tab and makes it active.
func (w *Window) AddTab(t *Tab) {
	w.Tabs = append(w.Tabs, t)
	w.ActiveTab = len(w.Tabs) - 1
}

// CloseTab removes the Tab at index i, closing its process and adjusting
// ActiveTab to stay within bounds. Returns true if the Window is now empty.
func (w *Window) CloseTab(i int) bool {
	if i < 0 || i >= len(w.Tabs) {
		return len(w.Tabs) == 0
	}
	_ = w.Tabs[i].Close()
	w.Tabs = append(w.Tabs[:i], w.Tabs[i+1:]...)
	if len(w.Tabs) == 0 {
		w.ActiveTab = 0
		return true
	}
	if w.ActiveTab >= len(w.Tabs) {
		w.ActiveTab = len(w.Tabs) - 1
	}
	return false
}

// NextTab / PrevTab cycle the active tab, wrapping around.
func (w *Window) NextTab() {
	if len(w.Tabs) == 0 {
		return
	}
	w.ActiveTab = (w.ActiveTab + 1) % len(w.Tabs)
}

func (w *Window) PrevTab() {
	if len(w.Tabs) == 0 {
		return
	}
	w.ActiveTab = (w.ActiveTab - 1 + len(w.Tabs)) % len(w.Tabs)
}
