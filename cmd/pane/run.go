package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	xterm "golang.org/x/term"

	"github.com/lucasilverentand/pane/internal/config"
	"github.com/lucasilverentand/pane/internal/daemon"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/pkglog"
	"github.com/lucasilverentand/pane/internal/protocol"
	"github.com/lucasilverentand/pane/internal/workspace"
)

func daemonProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// runDaemonForeground runs paned's event loop in this process, blocking
// until SIGTERM/SIGINT or a kill-session command ends it. "pane new" starts
// the daemon by running this subcommand in the background, so the separate
// paned binary need not be on PATH.
func runDaemonForeground(session string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := pkglog.New(os.Stderr, cfg.Daemon.LogLevel, "paned")

	socketPath, err := daemon.SocketPath(session)
	if err != nil {
		return err
	}

	d := daemon.New(socketPath, cfg, logger, func(onOutput pane.OutputFunc, onExit pane.ExitFunc) *workspace.ServerState {
		return daemon.BootstrapState(session, onOutput, onExit)
	})

	ln, err := d.Listen()
	if err != nil {
		return err
	}
	logger.Info("listening", "socket", socketPath, "session", session)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controlPath, err := daemon.ControlSocketPath(session)
	if err != nil {
		return err
	}
	controlLn, err := d.ListenControl(controlPath)
	if err != nil {
		return err
	}
	logger.Info("listening for control-mode clients", "socket", controlPath, "session", session)
	go d.RunControl(ctx, controlLn)

	d.Run(ctx, ln)
	logger.Info("daemon stopped", "session", session)
	return nil
}

// dial connects to the daemon socket for session, returning a typed error
// hinting at "pane new"/"pane attach" when the daemon isn't running.
func dial(session string) (net.Conn, error) {
	path, err := daemon.SocketPath(session)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("session %q is not running (start it with \"pane new %s\"): %w", session, session, err)
	}
	return conn, nil
}

// runNew starts the daemon for session if it isn't already running, then
// attaches to it.
func runNew(session string) error {
	path, err := daemon.SocketPath(session)
	if err != nil {
		return err
	}
	if conn, err := net.Dial("unix", path); err == nil {
		_ = conn.Close()
		return runAttach(session)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable path: %w", err)
	}
	cmd := exec.Command(exe, "daemon", "--session", session)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = daemonProcAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	_ = cmd.Process.Release()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			_ = conn.Close()
			return runAttach(session)
		}
		time.Sleep(25 * time.Millisecond)
	}
	return fmt.Errorf("daemon for session %q did not come up in time", session)
}

// runAttach puts the local terminal in raw mode, dials session, and pumps
// stdin keystrokes and pane output until the connection reaches EOF or the
// daemon sends RespSessionEnded/RespPaneExited. Every stdin byte is
// forwarded as a key; there is no local detach key.
func runAttach(session string) error {
	conn, err := dial(session)
	if err != nil {
		return err
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	width, height := 80, 24
	var restore *xterm.State
	if xterm.IsTerminal(fd) {
		if w, h, err := xterm.GetSize(fd); err == nil {
			width, height = w, h
		}
		if state, err := xterm.MakeRaw(fd); err == nil {
			restore = state
			defer xterm.Restore(fd, restore)
		}
	}

	if err := protocol.Send(conn, protocol.ClientRequest{Kind: protocol.ReqAttach, Width: width, Height: height}); err != nil {
		return fmt.Errorf("send attach: %w", err)
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			if w, h, err := xterm.GetSize(fd); err == nil {
				_ = protocol.Send(conn, protocol.ClientRequest{Kind: protocol.ReqResize, Width: w, Height: h})
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if err := protocol.Send(conn, protocol.ClientRequest{Kind: protocol.ReqKey, Bytes: append([]byte(nil), buf[:n]...)}); err != nil {
					done <- nil
					return
				}
			}
			if err != nil {
				done <- nil
				return
			}
		}
	}()

	for {
		var resp protocol.ServerResponse
		ok, err := protocol.Recv(conn, &resp)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch resp.Kind {
		case protocol.RespPaneOutput:
			os.Stdout.Write(resp.Data)
		case protocol.RespPaneExited, protocol.RespSessionEnded:
			return nil
		case protocol.RespError:
			fmt.Fprintln(os.Stderr, resp.Message)
		}
		select {
		case <-done:
			return nil
		default:
		}
	}
}

// runControl bridges the local terminal's stdin/stdout to the daemon's
// control-mode socket (spec §4.7), the way tmux's "-CC" client bridges its
// controlling terminal to a control-mode session: each stdin line is sent
// to the daemon verbatim as a command, and everything the daemon writes
// back — %begin/%end-bracketed output and asynchronous % notifications —
// is copied straight to stdout for a wrapping program to parse.
func runControl(session string) error {
	path, err := daemon.ControlSocketPath(session)
	if err != nil {
		return err
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("session %q is not running (start it with \"pane new %s\"): %w", session, session, err)
	}
	defer conn.Close()

	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, _ = io.Copy(os.Stdout, conn)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(conn, scanner.Text()); err != nil {
			break
		}
	}
	if uc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = uc.CloseWrite()
	}
	<-copyDone
	return nil
}

// runLs lists sessions with a live socket, noting whether each still
// accepts connections.
func runLs() error {
	names, err := daemon.ListSessions()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%-20s  %s", "SESSION", "STATUS"))
	fmt.Println(header)
	for _, name := range names {
		status := "dead"
		if path, err := daemon.SocketPath(name); err == nil {
			if conn, err := net.Dial("unix", path); err == nil {
				status = "running"
				_ = conn.Close()
			}
		}
		fmt.Printf("%-20s  %s\n", name, status)
	}
	return nil
}

// runKillSession sends the tmux-compatible kill-session command, which the
// command engine translates to ResultSessionEnded and the daemon uses to
// trigger graceful shutdown.
func runKillSession(session string) error {
	return runCommandSync(session, "kill-session")
}

// runCommandSync sends text to the command engine and prints its output,
// returning a non-nil error (so main exits nonzero) when the engine
// reports failure, per spec §6's exit-code rule.
func runCommandSync(session, text string) error {
	conn, err := dial(session)
	if err != nil {
		return err
	}
	defer conn.Close()

	var greet protocol.ServerResponse
	if ok, err := protocol.Recv(conn, &greet); err != nil || !ok {
		return fmt.Errorf("no greeting from daemon")
	}

	if err := protocol.Send(conn, protocol.ClientRequest{Kind: protocol.ReqCommandSync, Text: text, Seq: 1}); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	for {
		var resp protocol.ServerResponse
		ok, err := protocol.Recv(conn, &resp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("connection closed before command completed")
		}
		if resp.Kind != protocol.RespCommandOutput || resp.Seq != 1 {
			continue
		}
		if strings.TrimSpace(resp.Text) != "" {
			fmt.Println(resp.Text)
		}
		if !resp.Ok {
			return fmt.Errorf("command failed: %s", resp.Text)
		}
		return nil
	}
}
