// Package main implements paned, the pane daemon: the long-lived process
// that owns a session's ServerState and serves attached clients over a
// local stream socket (spec §4.5/§6).
//
// Grounded on the teacher's cmd/tuios daemon-mode RunE (the `tuios daemon`
// subcommand running the same event loop in the foreground that `tuios new`
// spawns in the background) and on spec §4.5's signal-handling rule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/lucasilverentand/pane/internal/config"
	"github.com/lucasilverentand/pane/internal/daemon"
	"github.com/lucasilverentand/pane/internal/pane"
	"github.com/lucasilverentand/pane/internal/pkglog"
	"github.com/lucasilverentand/pane/internal/workspace"
)

var (
	version = "dev"

	sessionName string
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paned",
		Short: "pane session daemon",
		Long: `paned owns one session's workspace tree and PTY children and serves
attached clients over a local Unix domain socket.

Neither "pane new" nor "pane attach" starts it ("pane new" runs the daemon
through "pane daemon" instead); run it directly for debugging or to keep it
attached to a supervisor.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon(sessionName, logLevel)
		},
	}
	rootCmd.Flags().StringVarP(&sessionName, "session", "s", "main", "session name to serve")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error, off)")

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func runDaemon(sessionName, logLevelOverride string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Daemon.LogLevel
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	logger := pkglog.New(os.Stderr, level, "paned")

	socketPath, err := daemon.SocketPath(sessionName)
	if err != nil {
		return err
	}

	d := daemon.New(socketPath, cfg, logger, func(onOutput pane.OutputFunc, onExit pane.ExitFunc) *workspace.ServerState {
		return daemon.BootstrapState(sessionName, onOutput, onExit)
	})

	ln, err := d.Listen()
	if err != nil {
		return err
	}
	logger.Info("listening", "socket", socketPath, "session", sessionName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controlPath, err := daemon.ControlSocketPath(sessionName)
	if err != nil {
		return err
	}
	controlLn, err := d.ListenControl(controlPath)
	if err != nil {
		return err
	}
	logger.Info("listening for control-mode clients", "socket", controlPath, "session", sessionName)
	go d.RunControl(ctx, controlLn)

	d.Run(ctx, ln)
	logger.Info("daemon stopped", "session", sessionName)
	return nil
}
