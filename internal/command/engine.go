package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lucasilverentand/pane/internal/keys"
	"github.com/lucasilverentand/pane/internal/layout"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/perrors"
	"github.com/lucasilverentand/pane/internal/protocol"
	"github.com/lucasilverentand/pane/internal/workspace"
)

// ResultKind tags the shape of an Engine.Execute outcome, per spec §4.4.
type ResultKind int

const (
	ResultOk ResultKind = iota
	ResultOkWithID
	ResultLayoutChanged
	ResultSessionEnded
	ResultDetachRequested
	ResultErr
)

// Result is the outcome of executing one parsed Command.
type Result struct {
	Kind   ResultKind
	Output string
	ID     uint32 // valid when Kind == ResultOkWithID
	Err    error  // valid when Kind == ResultErr
}

func ok(text string) Result                  { return Result{Kind: ResultOk, Output: text} }
func okWithID(text string, id uint32) Result  { return Result{Kind: ResultOkWithID, Output: text, ID: id} }
func layoutChanged() Result                   { return Result{Kind: ResultLayoutChanged} }
func errf(format string, a ...any) Result     { return Result{Kind: ResultErr, Err: fmt.Errorf(format, a...)} }
func errw(err error) Result                   { return Result{Kind: ResultErr, Err: err} }

// Broadcaster is how the engine fans ServerResponse events out to attached
// clients; the daemon supplies the real broadcast channel.
type Broadcaster func(protocol.ServerResponse)

// Engine executes parsed Commands against a ServerState.
type Engine struct {
	State     *workspace.ServerState
	Broadcast Broadcaster

	// OnPaneOutput and OnPaneExit are wired into every Tab the engine
	// spawns (split-window, new-window), so the daemon's PTY fan-out and
	// exit-handling apply uniformly regardless of which command created
	// the pane.
	OnPaneOutput pane.OutputFunc
	OnPaneExit   pane.ExitFunc
}

// New creates an Engine bound to state, fanning events out via broadcast.
func New(state *workspace.ServerState, broadcast Broadcaster) *Engine {
	return &Engine{State: state, Broadcast: broadcast}
}

func (e *Engine) emit(r protocol.ServerResponse) {
	if e.Broadcast != nil {
		e.Broadcast(r)
	}
}

// Execute runs one parsed Command and returns its Result, per spec §4.4.
// Supported commands: split-window, kill-pane, send-keys, select-pane,
// list-clients, new-window, rename-window, resize-pane, select-layout,
// kill-session, detach-client.
func (e *Engine) Execute(cmd Command) Result {
	switch cmd.Name {
	case "split-window":
		return e.splitWindow(cmd)
	case "kill-pane":
		return e.killPane(cmd)
	case "send-keys":
		return e.sendKeys(cmd)
	case "select-pane":
		return e.selectPane(cmd)
	case "list-clients":
		return e.listClients()
	case "new-window":
		return e.newWindow(cmd)
	case "rename-window":
		return e.renameWindow(cmd)
	case "resize-pane":
		return e.resizePane(cmd)
	case "select-layout":
		return e.selectLayout(cmd)
	case "kill-session":
		return Result{Kind: ResultSessionEnded}
	case "detach-client":
		return Result{Kind: ResultDetachRequested}
	default:
		return errf("unknown command: %s", cmd.Name)
	}
}

// resolvedTarget is either a pane (Tab) or a window (Window), resolved from
// a -t target string.
type resolvedTarget struct {
	tab *pane.Tab
	win *pane.Window
	ws  *workspace.Workspace
}

// resolveTarget parses "-t session:window.pane", accepting the bare forms
// %N (pane) and @N (window). Session-name prefixes are accepted and
// ignored beyond validating they match the current session, since this
// daemon manages exactly one session per spec §5.
func (e *Engine) resolveTarget(spec string) (resolvedTarget, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
	}
	if idx := strings.Index(spec, ":"); idx >= 0 {
		session := spec[:idx]
		if session != "" && session != e.State.SessionName {
			return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
		}
		spec = spec[idx+1:]
	}

	switch {
	case strings.HasPrefix(spec, "%"):
		n, err := strconv.ParseUint(spec[1:], 10, 32)
		if err != nil {
			return resolvedTarget{}, perrors.NewParseError("invalid pane target: %s", spec)
		}
		id, ok := e.State.IDMap.PaneID(uint32(n))
		if !ok {
			return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
		}
		tab, win, ws, ok := e.State.FindTab(id)
		if !ok {
			return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
		}
		return resolvedTarget{tab: tab, win: win, ws: ws}, nil
	case strings.HasPrefix(spec, "@"):
		n, err := strconv.ParseUint(spec[1:], 10, 32)
		if err != nil {
			return resolvedTarget{}, perrors.NewParseError("invalid window target: %s", spec)
		}
		id, ok := e.State.IDMap.WindowID(uint32(n))
		if !ok {
			return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
		}
		win, ws, ok := e.State.FindWindow(id)
		if !ok {
			return resolvedTarget{}, &perrors.TargetNotFound{Target: spec}
		}
		return resolvedTarget{win: win, ws: ws, tab: win.Active()}, nil
	default:
		return resolvedTarget{}, perrors.NewParseError("unrecognized target syntax: %s", spec)
	}
}

func (e *Engine) activeTargetOrResolve(cmd Command) (resolvedTarget, error) {
	if t, ok := cmd.Flag("t"); ok {
		return e.resolveTarget(t)
	}
	ws := e.State.ActiveWorkspaceState()
	if ws == nil {
		return resolvedTarget{}, perrors.NewInvariantViolation("no active workspace")
	}
	win := ws.ActiveGroupWindow()
	return resolvedTarget{tab: win.Active(), win: win, ws: ws}, nil
}

func (e *Engine) splitWindow(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.win == nil || rt.ws == nil {
		return errf("split-window: no target window")
	}

	dir := layout.Vertical
	if _, ok := cmd.Flag("h"); ok {
		dir = layout.Horizontal
	}

	newTab := pane.NewTab(pane.SpawnOptions{Kind: pane.KindShell, Width: 80, Height: 24}, e.OnPaneOutput, e.OnPaneExit)
	newWin := pane.NewWindow(newTab)
	e.State.IDMap.RegisterPane(newTab.ID)
	e.State.IDMap.RegisterWindow(newWin.ID)

	rt.ws.Groups[newWin.ID] = newWin
	if !rt.ws.Layout.SplitPane(rt.win.ID, dir, newWin.ID) {
		delete(rt.ws.Groups, newWin.ID)
		return errf("split-window: target window not found in layout")
	}
	rt.ws.ActiveGroup = newWin.ID
	rt.ws.PruneLeafMinSizes()

	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return layoutChanged()
}

func (e *Engine) killPane(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.tab == nil || rt.win == nil || rt.ws == nil {
		return errf("kill-pane: no target pane")
	}

	paneNum, _ := e.State.IDMap.PaneNumber(rt.tab.ID)
	e.emit(protocol.ServerResponse{Kind: protocol.RespPaneExited, PaneID: paneNum})

	idx := -1
	for i, t := range rt.win.Tabs {
		if t.ID == rt.tab.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errf("kill-pane: pane not found in its window")
	}
	windowEmpty := rt.win.CloseTab(idx)
	e.State.IDMap.UnregisterPane(rt.tab.ID)

	if windowEmpty {
		newRoot, focus, found := layout.ClosePane(rt.ws.Layout, rt.win.ID)
		if found {
			rt.ws.Layout = newRoot
		}
		rt.ws.RemoveGroup(rt.win.ID)
		e.State.IDMap.UnregisterWindow(rt.win.ID)
		if focus != nil {
			rt.ws.ActiveGroup = *focus
		}
	}
	rt.ws.PruneLeafMinSizes()

	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return layoutChanged()
}

func (e *Engine) sendKeys(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.tab == nil {
		return errf("send-keys: no target pane")
	}
	if len(cmd.Args) == 0 {
		return errf("send-keys: missing text")
	}
	text := strings.Join(cmd.Args, " ")
	var data []byte
	if named, ok := keys.NamedKey(text); ok {
		data = keys.ToBytes(named)
	} else {
		data = keys.EncodeSendKeysText(text)
	}
	if err := rt.tab.Write(data); err != nil {
		return errw(err)
	}
	return ok("")
}

func (e *Engine) selectPane(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.tab == nil || rt.win == nil || rt.ws == nil {
		return errf("select-pane: no target pane")
	}
	for i, t := range rt.win.Tabs {
		if t.ID == rt.tab.ID {
			rt.win.ActiveTab = i
			break
		}
	}
	rt.ws.ActiveGroup = rt.win.ID
	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return layoutChanged()
}

func (e *Engine) newWindow(cmd Command) Result {
	ws := e.State.ActiveWorkspaceState()
	if ws == nil {
		return errf("new-window: no active workspace")
	}
	newTab := pane.NewTab(pane.SpawnOptions{Kind: pane.KindShell, Width: 80, Height: 24}, e.OnPaneOutput, e.OnPaneExit)
	newWin := pane.NewWindow(newTab)
	e.State.IDMap.RegisterPane(newTab.ID)
	n := e.State.IDMap.RegisterWindow(newWin.ID)

	ws.Groups[newWin.ID] = newWin
	// The first group in a workspace owns the whole layout tree; additional
	// top-level windows become siblings of the existing root via a
	// horizontal split so every Window remains reachable as a leaf.
	root := ws.Layout
	newLeaf := layout.NewLeaf(newWin.ID)
	ws.Layout = &layout.Node{
		Kind:      layout.KindSplit,
		Direction: layout.Horizontal,
		Ratio:     0.5,
		First:     root,
		Second:    newLeaf,
	}
	ws.ActiveGroup = newWin.ID

	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return okWithID(fmt.Sprintf("@%d", n), n)
}

func (e *Engine) renameWindow(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.win == nil {
		return errf("rename-window: no target window")
	}
	if len(cmd.Args) == 0 {
		return errf("rename-window: missing name")
	}
	if rt.tab != nil {
		rt.tab.Title = cmd.Args[0]
	}
	return ok("")
}

// resizePane applies spec §4.2's resize(id, absolute_ratio) to the split
// enclosing the target window. A signed argument ("-5", "+10") is a
// percentage-point delta against the window's current share; an unsigned
// argument ("30") is the absolute percentage, matching tmux's resize-pane
// cell-count-vs-absolute-size distinction in spirit.
func (e *Engine) resizePane(cmd Command) Result {
	rt, err := e.activeTargetOrResolve(cmd)
	if err != nil {
		return errw(err)
	}
	if rt.win == nil || rt.ws == nil {
		return errf("resize-pane: no target window")
	}
	if len(cmd.Args) == 0 {
		return errf("resize-pane: missing size")
	}
	arg := cmd.Args[0]
	delta, err := strconv.Atoi(arg)
	if err != nil {
		return errf("resize-pane: invalid size %q", arg)
	}

	var next float64
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		cur, ok := layoutRatio(rt.ws.Layout, rt.win.ID)
		if !ok {
			return errf("resize-pane: target has no enclosing split")
		}
		next = cur + float64(delta)/100
	} else {
		next = float64(delta) / 100
	}

	if !layout.Resize(rt.ws.Layout, rt.win.ID, next) {
		return errf("resize-pane: target has no enclosing split")
	}
	rt.ws.PruneLeafMinSizes()

	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return layoutChanged()
}

// layoutRatio finds the ratio the leaf id occupies within its enclosing
// split, mirroring layout.Resize's own traversal so the two agree on which
// split a leaf belongs to.
func layoutRatio(n *layout.Node, id uuid.UUID) (float64, bool) {
	if n == nil || n.Kind == layout.KindLeaf {
		return 0, false
	}
	if n.First.Kind == layout.KindLeaf && n.First.Leaf == id {
		return n.Ratio, true
	}
	if n.Second.Kind == layout.KindLeaf && n.Second.Leaf == id {
		return 1 - n.Ratio, true
	}
	if r, ok := layoutRatio(n.First, id); ok {
		return r, true
	}
	return layoutRatio(n.Second, id)
}

// selectLayout implements the "-E" (spread-evenly) form of tmux's
// select-layout, binding spec §4.2's equalize() to the command surface.
func (e *Engine) selectLayout(cmd Command) Result {
	if _, ok := cmd.Flag("E"); !ok {
		return errf("select-layout: only -E (equalize) is supported")
	}
	ws := e.State.ActiveWorkspaceState()
	if ws == nil {
		return errf("select-layout: no active workspace")
	}
	layout.Equalize(ws.Layout)

	e.emit(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: e.snapshot()})
	return layoutChanged()
}

func (e *Engine) listClients() Result {
	var b strings.Builder
	for id, info := range e.State.Clients {
		fmt.Fprintf(&b, "%s: %dx%d\n", uuid.UUID(id), info.Width, info.Height)
	}
	return ok(b.String())
}

// Snapshot builds a RenderState for a LayoutChanged broadcast. Exported so
// callers outside the command grammar (the daemon's own PTY-exit handling)
// can emit the same render state a command would have produced.
func (e *Engine) Snapshot() *protocol.RenderState {
	return e.snapshot()
}

// snapshot builds a RenderState for a LayoutChanged broadcast.
func (e *Engine) snapshot() *protocol.RenderState {
	rs := &protocol.RenderState{ActiveWorkspace: e.State.ActiveWorkspace}
	for _, ws := range e.State.Workspaces {
		rs.Workspaces = append(rs.Workspaces, e.snapshotWorkspace(ws))
	}
	return rs
}

func (e *Engine) snapshotWorkspace(ws *workspace.Workspace) protocol.WorkspaceSnapshot {
	snap := protocol.WorkspaceSnapshot{
		Name:      ws.Name,
		SyncPanes: ws.SyncPanes,
		Layout:    e.snapshotLayout(ws.Layout),
	}
	if n, ok := e.State.IDMap.WindowNumber(ws.ActiveGroup); ok {
		snap.ActiveWindow = n
	}
	if ws.ZoomedWindow != nil {
		if n, ok := e.State.IDMap.WindowNumber(*ws.ZoomedWindow); ok {
			snap.ZoomedWindow = &n
		}
	}
	for id, win := range ws.Groups {
		n, _ := e.State.IDMap.WindowNumber(id)
		snap.Windows = append(snap.Windows, e.snapshotWindow(n, win))
	}
	for _, fw := range ws.FloatingWindows {
		n, _ := e.State.IDMap.WindowNumber(fw.ID)
		snap.FloatingWindows = append(snap.FloatingWindows, protocol.FloatingWindowSnapshot{
			ID: n, X: fw.X, Y: fw.Y, Width: fw.Width, Height: fw.Height,
		})
	}
	return snap
}

func (e *Engine) snapshotWindow(n uint32, win *pane.Window) protocol.WindowSnapshot {
	snap := protocol.WindowSnapshot{ID: n, ActiveTab: win.ActiveTab}
	for _, t := range win.Tabs {
		tn, _ := e.State.IDMap.PaneNumber(t.ID)
		snap.Tabs = append(snap.Tabs, protocol.TabSnapshot{
			ID: tn, Kind: t.Kind.Label(), Title: t.Title, Command: t.Command, Cwd: t.Cwd,
		})
	}
	return snap
}

func (e *Engine) snapshotLayout(n *layout.Node) *protocol.LayoutSnapshot {
	if n == nil {
		return nil
	}
	if n.Kind == layout.KindLeaf {
		num, _ := e.State.IDMap.WindowNumber(n.Leaf)
		return &protocol.LayoutSnapshot{Window: &num}
	}
	dir := "vertical"
	if n.Direction == layout.Horizontal {
		dir = "horizontal"
	}
	return &protocol.LayoutSnapshot{
		Direction: dir,
		Ratio:     n.Ratio,
		First:     e.snapshotLayout(n.First),
		Second:    e.snapshotLayout(n.Second),
	}
}
