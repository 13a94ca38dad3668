// Package plugin implements the PluginManager from spec §4.8: child
// processes that exchange newline-delimited JSON over stdin/stdout,
// contributing status-bar segments and optionally injecting commands.
//
// Grounded on _examples/original_source/crates/pane-daemon/src/plugin.rs:
// one goroutine per plugin reading stdout lines, a 2-second write timeout
// on stdin that kills and restarts the child on expiry, and event-name
// subscription matching including the "*" wildcard.
package plugin

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lucasilverentand/pane/internal/protocol"
)

// Config describes one plugin's launch command and event subscriptions.
type Config struct {
	Command             string
	Events              []string
	RefreshIntervalSecs int
}

type pluginOutput struct {
	Segments []protocol.PluginSegment `json:"segments"`
	Commands []string                 `json:"commands"`
}

type pluginInput struct {
	Event       string       `json:"event"`
	Workspace   string       `json:"workspace,omitempty"`
	SystemStats *inputStats  `json:"system_stats,omitempty"`
}

type inputStats struct {
	CPUPercent    float32 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
	LoadAvg1      float64 `json:"load_avg_1"`
}

type child struct {
	cmd   *exec.Cmd
	stdin *bufio.Writer
	raw   interface{ Close() error }
}

// Manager runs a fixed set of plugins for the lifetime of a session.
type Manager struct {
	mu       sync.Mutex
	configs  []Config
	children []*child
	segments [][]protocol.PluginSegment

	// OnSegments is called whenever a plugin reports new status-bar
	// segments. OnCommands is called when a plugin injects commands to be
	// executed as if a client had sent them.
	OnSegments func(pluginIdx int, segments []protocol.PluginSegment)
	OnCommands func(commands []string)

	logger *log.Logger
}

// New creates a Manager for configs, not yet started.
func New(configs []Config, logger *log.Logger) *Manager {
	return &Manager{
		configs:  configs,
		children: make([]*child, len(configs)),
		segments: make([][]protocol.PluginSegment, len(configs)),
		logger:   logger,
	}
}

// StartAll launches every configured plugin.
func (m *Manager) StartAll() {
	for i := range m.configs {
		m.startPlugin(i)
	}
}

func (m *Manager) startPlugin(idx int) {
	cfg := m.configs[idx]
	parts := strings.Fields(cfg.Command)
	if len(parts) == 0 {
		return
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		m.logf("plugin %q: stdin pipe: %v", cfg.Command, err)
		return
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		m.logf("plugin %q: stdout pipe: %v", cfg.Command, err)
		return
	}

	if err := cmd.Start(); err != nil {
		m.logf("plugin %q: failed to start: %v", cfg.Command, err)
		return
	}

	m.mu.Lock()
	m.children[idx] = &child{cmd: cmd, stdin: bufio.NewWriter(stdinPipe), raw: stdinPipe}
	m.mu.Unlock()

	go m.readLoop(idx, stdoutPipe)

	if cfg.RefreshIntervalSecs > 0 {
		go m.refreshLoop(idx, time.Duration(cfg.RefreshIntervalSecs)*time.Second)
	}
}

func (m *Manager) readLoop(idx int, r interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(bufio.NewReader(r))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var out pluginOutput
		if err := json.Unmarshal(bytes.TrimSpace(line), &out); err != nil {
			continue
		}
		if len(out.Segments) > 0 {
			m.mu.Lock()
			if idx < len(m.segments) {
				m.segments[idx] = out.Segments
			}
			m.mu.Unlock()
			if m.OnSegments != nil {
				m.OnSegments(idx, out.Segments)
			}
		}
		if len(out.Commands) > 0 && m.OnCommands != nil {
			m.OnCommands(out.Commands)
		}
	}
}

// refreshLoop pokes a single plugin on its configured interval with a
// "refresh" event so it can re-emit segments without waiting on one of the
// daemon's own event triggers (tick, focus-change, ...). It does not call
// OnCommands: a plugin that wants to inject commands does so from its
// normal stdout stream, same as any other output line.
func (m *Manager) refreshLoop(idx int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	payload, err := json.Marshal(pluginInput{Event: "refresh"})
	if err != nil {
		return
	}
	line := append(payload, '\n')
	for range ticker.C {
		m.mu.Lock()
		c := m.children[idx]
		m.mu.Unlock()
		if c == nil {
			continue
		}
		if !writeWithTimeout(c, line, 2*time.Second) {
			m.logf("plugin %q timed out on refresh write", m.configs[idx].Command)
			_ = c.cmd.Process.Kill()
			m.mu.Lock()
			m.children[idx] = nil
			m.mu.Unlock()
			m.startPlugin(idx)
		}
	}
}

// SendEvent delivers one event to every plugin subscribed to it (by exact
// name or the "*" wildcard). A plugin whose stdin write doesn't complete
// within 2 seconds is killed and restarted.
func (m *Manager) SendEvent(event, workspaceName string, stats *protocol.SystemStats) {
	input := pluginInput{Event: event, Workspace: workspaceName}
	if stats != nil {
		input.SystemStats = &inputStats{
			CPUPercent:    stats.CPUPercent,
			MemoryPercent: stats.MemoryPercent,
			LoadAvg1:      stats.LoadAvg1,
		}
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return
	}
	line := append(payload, '\n')

	var toRestart []int
	for i, cfg := range m.configs {
		if !subscribes(cfg, event) {
			continue
		}
		m.mu.Lock()
		c := m.children[i]
		m.mu.Unlock()
		if c == nil {
			continue
		}
		if !writeWithTimeout(c, line, 2*time.Second) {
			m.logf("plugin %q timed out on write", cfg.Command)
			_ = c.cmd.Process.Kill()
			m.mu.Lock()
			m.children[i] = nil
			m.mu.Unlock()
			toRestart = append(toRestart, i)
		}
	}
	for _, i := range toRestart {
		m.startPlugin(i)
	}
}

func subscribes(cfg Config, event string) bool {
	for _, e := range cfg.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

func writeWithTimeout(c *child, data []byte, d time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		_, err := c.stdin.Write(data)
		if err == nil {
			err = c.stdin.Flush()
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err == nil
	case <-time.After(d):
		return false
	}
}

// Segments returns the most recently reported segments for every plugin,
// in configuration order.
func (m *Manager) Segments() [][]protocol.PluginSegment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]protocol.PluginSegment, len(m.segments))
	copy(out, m.segments)
	return out
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(fmt.Sprintf(format, args...))
		return
	}
}
