// Package daemon implements the event loop from spec §4.5: it owns the
// single authoritative ServerState, accepts client connections on a local
// stream socket, pumps PTY output and exits, merges stats and plugin
// events into the broadcast stream, and persists sessions on shutdown.
//
// Grounded on spec §4.5/§5's description of the scheduling model (one
// owner of ServerState, a bounded broadcast channel, per-client forwarder
// tasks, blocking PTY reads on dedicated goroutines) translated to Go's
// goroutine/channel idiom, and on the teacher's internal/terminal and
// internal/session packages for the shape of a connection-handling loop
// (read loop + write loop per connection, clean shutdown via a done
// channel).
package daemon

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lucasilverentand/pane/internal/command"
	"github.com/lucasilverentand/pane/internal/config"
	"github.com/lucasilverentand/pane/internal/control"
	"github.com/lucasilverentand/pane/internal/idmap"
	"github.com/lucasilverentand/pane/internal/layout"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/perrors"
	"github.com/lucasilverentand/pane/internal/plugin"
	"github.com/lucasilverentand/pane/internal/protocol"
	"github.com/lucasilverentand/pane/internal/sessionstore"
	"github.com/lucasilverentand/pane/internal/stats"
	"github.com/lucasilverentand/pane/internal/workspace"
)

// broadcastBacklog is the bounded size of each client's outgoing queue. A
// client that cannot drain its queue before it fills is a slow consumer
// and is dropped, per spec §4.5.
const broadcastBacklog = 256

// Daemon owns one session's ServerState and serves it over a local socket.
type Daemon struct {
	State  *workspace.ServerState
	Engine *command.Engine
	Plugin *plugin.Manager
	Config *config.Config
	Log    *log.Logger

	socketPath        string
	controlSocketPath string

	mu       sync.Mutex
	clients  map[workspace.ClientID]*clientConn
	listener net.Listener

	shutdownOnce sync.Once
	done         chan struct{}
}

// clientConn is one attached connection, either the framed client/server
// protocol (control is nil) or a control-mode session (spec §4.7), whose
// line-based %begin/%end/% notification vocabulary is driven by
// internal/control instead of protocol.Send.
type clientConn struct {
	id      workspace.ClientID
	conn    net.Conn
	out     chan protocol.ServerResponse
	closeCh chan struct{}
	control *control.Session

	// writeMu serializes the two writers a control-mode connection has
	// (writeLoop relaying broadcasts, controlReadLoop relaying RunLine
	// replies) so their output never interleaves mid-line. Unused by
	// framed-protocol connections, which have only one writer.
	writeMu sync.Mutex
}

// New allocates a Daemon and its initial ServerState together: the
// bootstrap Tab (freshly created, or none if a prior session was loaded
// and its tabs are re-spawned by the caller) is wired to the Daemon's own
// PTY routing from the moment it is spawned, since a Tab's output/exit
// callbacks are fixed at construction and cannot be attached later.
//
// loadOrCreate is called with the Daemon's pane spawn callbacks already
// available (as d.onPaneOutput/d.onPaneExit) and must return the
// ServerState to serve.
func New(socketPath string, cfg *config.Config, logger *log.Logger, loadOrCreate func(onOutput pane.OutputFunc, onExit pane.ExitFunc) *workspace.ServerState) *Daemon {
	d := &Daemon{
		Config:     cfg,
		Log:        logger,
		socketPath: socketPath,
		clients:    make(map[workspace.ClientID]*clientConn),
		done:       make(chan struct{}),
	}

	d.State = loadOrCreate(d.onPaneOutput, d.onPaneExit)
	d.Engine = command.New(d.State, d.broadcast)
	d.Engine.OnPaneOutput = d.onPaneOutput
	d.Engine.OnPaneExit = d.onPaneExit

	if cfg != nil && len(cfg.Plugins) > 0 {
		pluginConfigs := make([]plugin.Config, len(cfg.Plugins))
		for i, p := range cfg.Plugins {
			pluginConfigs[i] = p.ToPlugin()
		}
		d.Plugin = plugin.New(pluginConfigs, logger)
		d.Plugin.OnSegments = d.onPluginSegments
		d.Plugin.OnCommands = d.onPluginCommands
	}

	return d
}

// BootstrapState implements spec §4.5's startup rule: load a prior session
// from the external store if one exists under sessionName, re-spawning
// each of its tabs' commands fresh (scrollback is not replayed into the
// live PTY; it exists only for a future client-side history view, out of
// scope here); otherwise create a single Workspace with one Window
// containing one shell Tab.
func BootstrapState(sessionName string, onOutput pane.OutputFunc, onExit pane.ExitFunc) *workspace.ServerState {
	sess, found, err := sessionstore.Load(sessionName)
	if err != nil || !found {
		tab := pane.NewTab(pane.SpawnOptions{Kind: pane.KindShell, Width: 80, Height: 24}, onOutput, onExit)
		win := pane.NewWindow(tab)
		ws := workspace.New("main", win)
		state := workspace.NewState(sessionName, ws)
		state.IDMap.RegisterPane(tab.ID)
		state.IDMap.RegisterWindow(win.ID)
		return state
	}

	state := &workspace.ServerState{
		SessionID:        sess.ID,
		SessionName:      sess.Name,
		SessionCreatedAt: sess.CreatedAt,
		ActiveWorkspace:  sess.ActiveWorkspace,
		Clients:          make(map[workspace.ClientID]*workspace.ClientInfo),
	}
	state.IDMap = idmap.New()
	for _, wsCfg := range sess.Workspaces {
		ws := &workspace.Workspace{
			Name:         wsCfg.Name,
			Layout:       wsCfg.Layout,
			Groups:       make(map[uuid.UUID]*pane.Window),
			ActiveGroup:  wsCfg.ActiveGroup,
			LeafMinSizes: make(map[uuid.UUID]workspace.MinSize),
			SyncPanes:    wsCfg.SyncPanes,
		}
		for _, groupCfg := range wsCfg.Groups {
			var tabs []*pane.Tab
			for _, tabCfg := range groupCfg.Tabs {
				tab := pane.NewTab(pane.SpawnOptions{
					Command: tabCfg.Command,
					Cwd:     tabCfg.Cwd,
					Width:   80,
					Height:  24,
				}, onOutput, onExit)
				state.IDMap.RegisterPane(tab.ID)
				tabs = append(tabs, tab)
			}
			if len(tabs) == 0 {
				tab := pane.NewTab(pane.SpawnOptions{Kind: pane.KindShell, Width: 80, Height: 24}, onOutput, onExit)
				state.IDMap.RegisterPane(tab.ID)
				tabs = append(tabs, tab)
			}
			win := &pane.Window{ID: groupCfg.ID, Tabs: tabs, ActiveTab: groupCfg.ActiveTab}
			state.IDMap.RegisterWindow(win.ID)
			ws.Groups[win.ID] = win
		}
		state.Workspaces = append(state.Workspaces, ws)
	}
	if len(state.Workspaces) == 0 {
		tab := pane.NewTab(pane.SpawnOptions{Kind: pane.KindShell, Width: 80, Height: 24}, onOutput, onExit)
		win := pane.NewWindow(tab)
		ws := workspace.New("main", win)
		state.Workspaces = append(state.Workspaces, ws)
		state.IDMap.RegisterPane(tab.ID)
		state.IDMap.RegisterWindow(win.ID)
	}
	return state
}

// SocketPath resolves the local stream socket path for sessionName under
// $XDG_RUNTIME_DIR/pane (falling back to a temp directory when unset),
// per spec §6.
func SocketPath(sessionName string) (string, error) {
	p, err := xdg.RuntimeFile(filepath.Join("pane", sessionName+".sock"))
	if err != nil {
		return "", &perrors.IoError{Op: "resolve runtime socket path", Err: err}
	}
	return p, nil
}

// ControlSocketPath resolves the control-mode socket path for sessionName,
// a separate line-based socket from the main framed-protocol socket (spec
// §4.7). Control mode speaks a different wire format (newline-delimited
// text, no length-prefixed frames) than the client protocol's ReqAttach/
// ReqKey traffic, so it gets its own socket rather than a connection-kind
// negotiation on the shared one, mirroring how tmux's -CC client keeps
// control mode on its own stdio rather than multiplexing it onto the
// regular client connection.
func ControlSocketPath(sessionName string) (string, error) {
	p, err := xdg.RuntimeFile(filepath.Join("pane", sessionName+".control.sock"))
	if err != nil {
		return "", &perrors.IoError{Op: "resolve control socket path", Err: err}
	}
	return p, nil
}

// ListSessions returns the names of every session with a live socket under
// the runtime directory, for the `ls` CLI subcommand. A session whose
// socket file exists but whose daemon has since died is still listed;
// callers that care about liveness should attempt to dial it.
func ListSessions() ([]string, error) {
	dir, err := xdg.RuntimeFile("pane")
	if err != nil {
		return nil, &perrors.IoError{Op: "resolve runtime directory", Err: err}
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &perrors.IoError{Op: "read runtime directory", Err: err}
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type()&os.ModeSocket == 0 && !e.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".control.sock") {
			continue
		}
		if filepath.Ext(name) != ".sock" {
			continue
		}
		names = append(names, name[:len(name)-len(".sock")])
	}
	return names, nil
}

// Listen binds the Unix domain socket at d.socketPath with 0700
// permissions, per spec §6.
func (d *Daemon) Listen() (net.Listener, error) {
	_ = os.Remove(d.socketPath)
	ln, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return nil, &perrors.IoError{Op: "listen on socket", Err: err}
	}
	if err := os.Chmod(d.socketPath, 0o700); err != nil {
		_ = ln.Close()
		return nil, &perrors.IoError{Op: "chmod socket", Err: err}
	}
	return ln, nil
}

// ListenControl binds the control-mode socket at socketPath, mirroring
// Listen. Kept as a separate call (rather than folded into Listen) so a
// caller that doesn't want control mode at all can skip it.
func (d *Daemon) ListenControl(socketPath string) (net.Listener, error) {
	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, &perrors.IoError{Op: "listen on control socket", Err: err}
	}
	if err := os.Chmod(socketPath, 0o700); err != nil {
		_ = ln.Close()
		return nil, &perrors.IoError{Op: "chmod control socket", Err: err}
	}
	d.mu.Lock()
	d.controlSocketPath = socketPath
	d.mu.Unlock()
	return ln, nil
}

// RunControl accepts control-mode connections on ln, blocking until ctx is
// cancelled. Meant to run concurrently with Run in its own goroutine.
func (d *Daemon) RunControl(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			default:
				if d.Log != nil {
					d.Log.Warn("control accept failed", "err", err)
				}
				continue
			}
		}
		go d.handleControlConn(ctx, conn)
	}
}

// Run accepts connections on ln and starts the stats/plugin event sources,
// blocking until ctx is cancelled. On return the socket is already
// unlinked and every client connection closed.
func (d *Daemon) Run(ctx context.Context, ln net.Listener) {
	if d.Plugin != nil {
		d.Plugin.StartAll()
	}

	statsInterval := 2 * time.Second
	if d.Config != nil && d.Config.Daemon.StatsIntervalMS > 0 {
		statsInterval = time.Duration(d.Config.Daemon.StatsIntervalMS) * time.Millisecond
	}
	collector := stats.New(statsInterval, d.onStatsSample)
	go collector.Run(ctx)

	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				d.shutdown()
				return
			case <-d.done:
				return
			default:
				if d.Log != nil {
					d.Log.Warn("accept failed", "err", err)
				}
				continue
			}
		}
		go d.handleConn(ctx, conn)
	}
}

// requestSessionEnd implements the `kill-session` command's ResultSessionEnded
// per spec §4.4's note that it "must gracefully terminate" the daemon: it
// broadcasts SessionEnded to every attached client, closes the listener,
// and runs shutdown(), whose closing of d.done makes Run return.
func (d *Daemon) requestSessionEnd() {
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespSessionEnded})
	d.mu.Lock()
	ln := d.listener
	d.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	d.shutdown()
}

func (d *Daemon) shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.done)
		d.mu.Lock()
		clients := make([]*clientConn, 0, len(d.clients))
		for _, c := range d.clients {
			clients = append(clients, c)
		}
		d.mu.Unlock()
		for _, c := range clients {
			_ = c.conn.Close()
		}
		sess := sessionstore.FromState(d.State, timeNow())
		if err := sessionstore.Save(sess); err != nil && d.Log != nil {
			d.Log.Error("failed to persist session on shutdown", "err", err)
		}
		_ = os.Remove(d.socketPath)
		if d.controlSocketPath != "" {
			_ = os.Remove(d.controlSocketPath)
		}
	})
}

func timeNow() time.Time { return time.Now() }

func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	id := workspace.ClientID(uuid.New())
	cc := &clientConn{id: id, conn: conn, out: make(chan protocol.ServerResponse, broadcastBacklog), closeCh: make(chan struct{})}

	d.mu.Lock()
	d.clients[id] = cc
	d.State.Clients[id] = &workspace.ClientInfo{}
	clientCount := len(d.clients)
	d.mu.Unlock()
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespClientCountChanged, Count: clientCount})

	_ = protocol.Send(conn, protocol.ServerResponse{Kind: protocol.RespAttached})
	go d.writeLoop(cc)
	d.readLoop(ctx, cc)

	d.mu.Lock()
	delete(d.clients, id)
	delete(d.State.Clients, id)
	clientCount = len(d.clients)
	d.mu.Unlock()
	close(cc.closeCh)
	_ = conn.Close()
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespClientCountChanged, Count: clientCount})
}

func (d *Daemon) writeLoop(cc *clientConn) {
	for {
		select {
		case resp, ok := <-cc.out:
			if !ok {
				return
			}
			if cc.control != nil {
				cc.writeMu.Lock()
				ok := control.WriteNotification(cc.conn, resp)
				cc.writeMu.Unlock()
				if !ok {
					return
				}
				continue
			}
			if err := protocol.Send(cc.conn, resp); err != nil {
				return
			}
		case <-cc.closeCh:
			return
		}
	}
}

// handleControlConn serves one control-mode connection (spec §4.7): it
// greets the client, then runs a read loop of command lines through a
// control.Session bound to the daemon's shared Engine, while writeLoop (via
// cc.control) relays the daemon's existing broadcast stream to it as
// % notification lines instead of framed protocol.ServerResponse values.
func (d *Daemon) handleControlConn(ctx context.Context, conn net.Conn) {
	id := workspace.ClientID(uuid.New())
	cc := &clientConn{
		id:      id,
		conn:    conn,
		out:     make(chan protocol.ServerResponse, broadcastBacklog),
		closeCh: make(chan struct{}),
		control: control.NewSession(d.Engine, func() int64 { return timeNow().Unix() }),
	}

	if err := control.Greet(conn); err != nil {
		_ = conn.Close()
		return
	}

	d.mu.Lock()
	d.clients[id] = cc
	d.State.Clients[id] = &workspace.ClientInfo{}
	clientCount := len(d.clients)
	d.mu.Unlock()
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespClientCountChanged, Count: clientCount})

	go d.writeLoop(cc)
	d.controlReadLoop(ctx, cc)

	d.mu.Lock()
	delete(d.clients, id)
	delete(d.State.Clients, id)
	clientCount = len(d.clients)
	d.mu.Unlock()
	close(cc.closeCh)
	_ = conn.Close()
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespClientCountChanged, Count: clientCount})
}

// controlReadLoop scans newline-delimited command lines off cc.conn and
// drives each through cc.control.RunLine, stopping once RunLine reports a
// SessionEnded result (mirroring kill-session's effect on the framed
// protocol's handleRequest).
func (d *Daemon) controlReadLoop(ctx context.Context, cc *clientConn) {
	scanner := bufio.NewScanner(cc.conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cc.writeMu.Lock()
		cont := cc.control.RunLine(cc.conn, line)
		cc.writeMu.Unlock()
		if !cont {
			go d.requestSessionEnd()
			return
		}
	}
}

func (d *Daemon) readLoop(ctx context.Context, cc *clientConn) {
	for {
		var req protocol.ClientRequest
		ok, err := protocol.Recv(cc.conn, &req)
		if err != nil || !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.handleRequest(cc, req)
	}
}

func (d *Daemon) handleRequest(cc *clientConn, req protocol.ClientRequest) {
	switch req.Kind {
	case protocol.ReqAttach:
		d.mu.Lock()
		if info, ok := d.State.Clients[cc.id]; ok {
			info.Width, info.Height = req.Width, req.Height
		}
		d.mu.Unlock()
	case protocol.ReqDetach:
		_ = cc.conn.Close()
	case protocol.ReqResize:
		d.handleResize(cc, req)
	case protocol.ReqKey:
		d.handleKey(cc, req)
	case protocol.ReqCommand:
		res := d.Engine.Execute(parseCommandOrEmpty(req.Text))
		if res.Kind == command.ResultSessionEnded {
			go d.requestSessionEnd()
		}
	case protocol.ReqCommandSync:
		res := d.Engine.Execute(parseCommandOrEmpty(req.Text))
		cc.out <- protocol.ServerResponse{
			Kind: protocol.RespCommandOutput,
			Seq:  req.Seq,
			Text: res.Output,
			Ok:   res.Kind != command.ResultErr,
		}
		if res.Kind == command.ResultSessionEnded {
			go d.requestSessionEnd()
		}
	case protocol.ReqFullScreenDump:
		d.handleFullScreenDump(cc, req)
	}
}

func parseCommandOrEmpty(text string) command.Command {
	cmd, err := command.Parse(text)
	if err != nil {
		return command.Command{Name: ""}
	}
	return cmd
}

func (d *Daemon) handleResize(cc *clientConn, req protocol.ClientRequest) {
	d.mu.Lock()
	info, ok := d.State.Clients[cc.id]
	if ok {
		info.Width, info.Height = req.Width, req.Height
	}
	ws := d.State.ActiveWorkspaceState()
	d.mu.Unlock()
	if ws == nil {
		return
	}
	win := ws.ActiveGroupWindow()
	if win == nil {
		return
	}
	if tab := win.Active(); tab != nil {
		_ = tab.Resize(req.Width, req.Height)
	}
}

func (d *Daemon) handleKey(cc *clientConn, req protocol.ClientRequest) {
	d.mu.Lock()
	ws := d.State.ActiveWorkspaceState()
	d.mu.Unlock()
	if ws == nil {
		return
	}
	win := ws.ActiveGroupWindow()
	if win == nil {
		return
	}
	tab := win.Active()
	if tab == nil {
		return
	}
	_ = tab.Write(req.Bytes)

	if !ws.SyncPanes {
		return
	}
	for _, otherWin := range ws.Groups {
		for _, t := range otherWin.Tabs {
			if t.ID == tab.ID {
				continue
			}
			_ = t.Write(req.Bytes)
		}
	}
}

func (d *Daemon) handleFullScreenDump(cc *clientConn, req protocol.ClientRequest) {
	d.mu.Lock()
	id, ok := d.State.IDMap.PaneID(req.PaneID)
	d.mu.Unlock()
	if !ok {
		cc.out <- protocol.ServerResponse{Kind: protocol.RespError, Message: "unknown pane id"}
		return
	}
	tab, _, _, found := d.State.FindTab(id)
	if !found {
		cc.out <- protocol.ServerResponse{Kind: protocol.RespError, Message: "pane not found"}
		return
	}
	cc.out <- protocol.ServerResponse{Kind: protocol.RespFullScreenDump, PaneID: req.PaneID, Data: tab.Screen.Dump()}
}

// broadcast is the command.Broadcaster the Engine calls; it fans resp out
// to every attached client, dropping (and logging) any whose queue is full.
func (d *Daemon) broadcast(resp protocol.ServerResponse) {
	d.mu.Lock()
	targets := make([]*clientConn, 0, len(d.clients))
	for _, c := range d.clients {
		targets = append(targets, c)
	}
	d.mu.Unlock()

	for _, c := range targets {
		select {
		case c.out <- resp:
		default:
			if d.Log != nil {
				d.Log.Warn("dropping slow consumer", "client", c.id, "err", (&perrors.SlowConsumer{ClientID: uuid.UUID(c.id).String()}).Error())
			}
			_ = c.conn.Close()
		}
	}
}

func (d *Daemon) onPaneOutput(id uuid.UUID, data []byte) {
	d.mu.Lock()
	if d.State == nil {
		d.mu.Unlock()
		return
	}
	n, ok := d.State.IDMap.PaneNumber(id)
	d.mu.Unlock()
	if !ok {
		return
	}
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespPaneOutput, PaneID: n, Data: data})
}

func (d *Daemon) onPaneExit(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State == nil {
		return
	}
	tab, win, ws, found := d.State.FindTab(id)
	if !found {
		return
	}
	n, _ := d.State.IDMap.PaneNumber(id)
	idx := -1
	for i, t := range win.Tabs {
		if t.ID == tab.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	windowEmpty := win.CloseTab(idx)
	d.State.IDMap.UnregisterPane(id)
	if windowEmpty {
		if newRoot, focus, found := layout.ClosePane(ws.Layout, win.ID); found {
			ws.Layout = newRoot
			if focus != nil {
				ws.ActiveGroup = *focus
			}
		}
		ws.RemoveGroup(win.ID)
		d.State.IDMap.UnregisterWindow(win.ID)
	}
	ws.PruneLeafMinSizes()
	render := d.Engine.Snapshot()
	go func() {
		d.broadcast(protocol.ServerResponse{Kind: protocol.RespPaneExited, PaneID: n})
		d.broadcast(protocol.ServerResponse{Kind: protocol.RespLayoutChanged, RenderState: render})
	}()
}

func (d *Daemon) onStatsSample(s protocol.SystemStats) {
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespStatsUpdate, Stats: &s})
	if d.Plugin != nil {
		d.mu.Lock()
		ws := d.State.ActiveWorkspaceState()
		d.mu.Unlock()
		name := ""
		if ws != nil {
			name = ws.Name
		}
		d.Plugin.SendEvent("stats", name, &s)
	}
}

func (d *Daemon) onPluginSegments(idx int, segments []protocol.PluginSegment) {
	d.broadcast(protocol.ServerResponse{Kind: protocol.RespPluginSegments, Segments: segments})
}

func (d *Daemon) onPluginCommands(commands []string) {
	for _, c := range commands {
		cmd, err := command.Parse(c)
		if err != nil {
			continue
		}
		d.Engine.Execute(cmd)
	}
}
