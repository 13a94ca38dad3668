// Package config loads pane's TOML configuration file and can watch it for
// changes, generalizing the teacher's internal/config/userconfig.go (XDG
// lookup + go-toml/v2 unmarshal + default-filling) to the daemon's settings:
// log level, scrollback size, socket directory, stats interval, and plugin
// definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/lucasilverentand/pane/internal/plugin"
)

// PluginConfig mirrors plugin.Config's TOML shape.
type PluginConfig struct {
	Command             string   `toml:"command"`
	Events              []string `toml:"events"`
	RefreshIntervalSecs int      `toml:"refresh_interval_secs"`
}

// ToPlugin converts the TOML-facing shape into plugin.Config.
func (p PluginConfig) ToPlugin() plugin.Config {
	return plugin.Config{Command: p.Command, Events: p.Events, RefreshIntervalSecs: p.RefreshIntervalSecs}
}

// DaemonConfig holds daemon-wide behavior settings.
type DaemonConfig struct {
	LogLevel        string `toml:"log_level"`        // off, debug, info, warn, error
	ScrollbackLines int    `toml:"scrollback_lines"` // default 10000, min 100
	SocketDir       string `toml:"socket_dir"`        // not read; sockets always live under $XDG_RUNTIME_DIR/pane
	StatsIntervalMS int    `toml:"stats_interval_ms"` // default 2000, min 1000
}

// Config is the top-level pane configuration document.
type Config struct {
	Daemon  DaemonConfig   `toml:"daemon"`
	Plugins []PluginConfig `toml:"plugins"`
}

// Default returns pane's built-in default configuration.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			LogLevel:        "info",
			ScrollbackLines: 10000,
			StatsIntervalMS: 2000,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Daemon.LogLevel == "" {
		c.Daemon.LogLevel = def.Daemon.LogLevel
	}
	if c.Daemon.ScrollbackLines < 100 {
		c.Daemon.ScrollbackLines = def.Daemon.ScrollbackLines
	}
	if c.Daemon.StatsIntervalMS < 1000 {
		c.Daemon.StatsIntervalMS = def.Daemon.StatsIntervalMS
	}
}

// Path resolves pane's config file under the XDG config home, creating the
// parent directory but not the file itself.
func Path() (string, error) {
	p, err := xdg.ConfigFile("pane/config.toml")
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return p, nil
}

// Load reads and parses the config file, falling back to Default() (and
// writing it out) when no file exists yet.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := Save(cfg); saveErr != nil {
			return nil, saveErr
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes cfg to the XDG config path, creating parent directories as
// needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Watcher hot-reloads the config file on change, invoking onChange with the
// newly parsed Config. Parse errors are swallowed (the previous config
// stays in effect) since a half-written file mid-save is a transient state,
// not a fatal one.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onChange func(*Config)
	done     chan struct{}
}

// WatchConfig starts watching the config file for changes.
func WatchConfig(onChange func(*Config)) (*Watcher, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	w := &Watcher{fsw: fsw, path: path, onChange: onChange, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if cfg, err := Load(); err == nil && w.onChange != nil {
				w.onChange(cfg)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
