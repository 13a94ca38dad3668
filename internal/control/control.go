// Package control implements the tmux-compatible control-mode transport
// from spec §4.7: a line-based stdin/stdout protocol bracketing each
// command's output in %begin/%end markers and reporting broadcast events as
// % notification lines.
//
// Grounded on _examples/original_source/src/server/control.rs: the greeting
// sequence, the %begin/%end/%output/%exit line vocabulary, and the base64
// encoder (spec §8 property 8 golden vectors). Go's standard base64 package
// already implements the exact standard alphabet with "=" padding this
// calls for, so control mode uses encoding/base64 rather than hand-rolling
// it — the one place this package reaches for the standard library instead
// of a teacher-style dependency, because there is no ecosystem library that
// does "base64, the standard way" any better than the one in the standard
// library.
package control

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/lucasilverentand/pane/internal/command"
	"github.com/lucasilverentand/pane/internal/protocol"
)

// Clock supplies the unix timestamp used in %begin/%end lines; tests can
// substitute a fixed clock.
type Clock func() int64

// Session runs one control-mode connection's commands: RunLine executes one
// command line against Engine and writes its %begin/%end-bracketed output
// to the writer it is given. Broadcast notifications are written
// separately, with WriteNotification.
type Session struct {
	Engine *command.Engine
	Now    Clock

	w      *bufio.Writer
	cmdNum uint64
}

// NewSession wraps a Session around an already-constructed Engine.
func NewSession(eng *command.Engine, now Clock) *Session {
	if now == nil {
		now = func() int64 { return 0 }
	}
	return &Session{Engine: eng, Now: now, cmdNum: 1}
}

// Greet writes the initial control-mode banner: "%begin 0 0 0", "pane",
// "%end 0 0 0".
func Greet(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "%begin 0 0 0")
	fmt.Fprintln(bw, "pane")
	fmt.Fprintln(bw, "%end 0 0 0")
	return bw.Flush()
}

// RunLine executes one trimmed, non-empty command line, writing the
// %begin/output/%end bracket to w. Returns true if the session should keep
// reading further lines (false after a SessionEnded result).
func (s *Session) RunLine(w io.Writer, line string) bool {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	n := s.Now()
	num := s.cmdNum
	s.cmdNum++

	cmd, err := command.Parse(line)
	if err != nil {
		fmt.Fprintf(bw, "%%begin %d %d 0\n", n, num)
		fmt.Fprintf(bw, "%%error %s\n", err)
		fmt.Fprintf(bw, "%%end %d %d 1\n", n, num)
		return true
	}

	fmt.Fprintf(bw, "%%begin %d %d 0\n", n, num)
	res := s.Engine.Execute(cmd)
	switch res.Kind {
	case command.ResultOk, command.ResultOkWithID:
		if res.Output != "" {
			fmt.Fprintln(bw, res.Output)
		}
		fmt.Fprintf(bw, "%%end %d %d 0\n", n, num)
	case command.ResultLayoutChanged, command.ResultDetachRequested:
		fmt.Fprintf(bw, "%%end %d %d 0\n", n, num)
	case command.ResultSessionEnded:
		fmt.Fprintf(bw, "%%end %d %d 0\n", n, num)
		return false
	case command.ResultErr:
		fmt.Fprintf(bw, "%%error %s\n", res.Err)
		fmt.Fprintf(bw, "%%end %d %d 1\n", n, num)
	}
	return true
}

// WriteNotification renders one broadcast ServerResponse as a control-mode
// notification line. Returns false once SessionEnded has been written,
// signaling the caller to stop the notification relay.
func WriteNotification(w io.Writer, resp protocol.ServerResponse) bool {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	switch resp.Kind {
	case protocol.RespPaneOutput:
		fmt.Fprintf(bw, "%%output %%%d %s\n", resp.PaneID, base64.StdEncoding.EncodeToString(resp.Data))
	case protocol.RespPaneExited:
		fmt.Fprintf(bw, "%%pane-exited %d\n", resp.PaneID)
	case protocol.RespLayoutChanged:
		n := 0
		if resp.RenderState != nil {
			n = len(resp.RenderState.Workspaces)
		}
		active := 0
		if resp.RenderState != nil {
			active = resp.RenderState.ActiveWorkspace
		}
		fmt.Fprintf(bw, "%%layout-change %d workspaces %d active\n", n, active)
	case protocol.RespSessionEnded:
		fmt.Fprintln(bw, "%exit")
		return false
	case protocol.RespAttached:
		fmt.Fprintln(bw, "%session-changed pane")
	case protocol.RespError:
		fmt.Fprintf(bw, "%%error %s\n", resp.Message)
	case protocol.RespFullScreenDump:
		fmt.Fprintf(bw, "%%screen-dump %d %s\n", resp.PaneID, base64.StdEncoding.EncodeToString(resp.Data))
	case protocol.RespClientCountChanged:
		fmt.Fprintf(bw, "%%client-count %d\n", resp.Count)
		// StatsUpdate, CommandOutput, and PluginSegments are intentionally
		// not relayed as control-mode notifications: stats have no
		// line-protocol representation here, CommandSync replies are sent
		// directly by RunLine, and plugin segments are a render concern.
	}
	return true
}
