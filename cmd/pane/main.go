// Package main implements pane, the thin client CLI (spec §6's external
// CLI surface): new, attach, ls, kill-session, send-keys, daemon, and a
// tmux-compatible passthrough, each dialing paned's local socket.
//
// Grounded on the teacher's cmd/tuios/main.go: one cobra root command,
// persistent flags, many leaf subcommands, fang.Execute as the single
// entrypoint.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	sessionFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pane",
		Short: "pane terminal multiplexer client",
		Long: `pane is the client for the pane terminal multiplexer daemon.

Each subcommand dials the daemon's local socket for the named session,
starting the daemon on demand where that makes sense (new).`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "main", "session name")

	newCmd := &cobra.Command{
		Use:     "new [session-name]",
		Short:   "create a new session and attach to it",
		Aliases: []string{"n"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runNew(sessionNameFrom(args))
		},
	}

	attachCmd := &cobra.Command{
		Use:     "attach [session-name]",
		Short:   "attach to an existing session",
		Aliases: []string{"a"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAttach(sessionNameFrom(args))
		},
	}

	lsCmd := &cobra.Command{
		Use:     "ls",
		Short:   "list sessions",
		Aliases: []string{"list-sessions"},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLs()
		},
	}

	killSessionCmd := &cobra.Command{
		Use:   "kill-session [session-name]",
		Short: "terminate a session and its windows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKillSession(sessionNameFrom(args))
		},
	}

	sendKeysCmd := &cobra.Command{
		Use:   "send-keys [-t target] <keys>...",
		Short: "send keystrokes to a pane",
		Long: `send-keys forwards its arguments verbatim as a tmux-compatible
send-keys command line to the daemon's command engine, e.g.:

  pane send-keys -t %0 "hello\n"`,
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommandSync(sessionFlag, "send-keys "+quoteArgs(args))
		},
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "run the daemon in the foreground",
		Long:  "Run the daemon for --session in the foreground. Useful for debugging; \"pane new\" runs this same subcommand in the background when the session is not running.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemonForeground(sessionFlag)
		},
	}

	tmuxCmd := &cobra.Command{
		Use:                "tmux [command...]",
		Short:              "run a tmux-compatible command against the session",
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runCommandSync(sessionFlag, quoteArgs(args))
		},
	}

	controlCmd := &cobra.Command{
		Use:     "control [session-name]",
		Short:   "bridge stdin/stdout to the session's control-mode socket",
		Aliases: []string{"cc"},
		Long: `control runs a tmux "-CC"-style control-mode client: it dials the
daemon's control socket (separate from the normal attach socket), sends
each stdin line to the command engine, and copies the daemon's
%begin/%end-bracketed output and % notification lines straight to
stdout. Meant to be driven by another program, not typed at directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runControl(sessionNameFrom(args))
		},
	}

	rootCmd.AddCommand(newCmd, attachCmd, lsCmd, killSessionCmd, sendKeysCmd, daemonCmd, tmuxCmd, controlCmd)

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func sessionNameFrom(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return sessionFlag
}

func quoteArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += quoteArg(a)
	}
	return out
}

func quoteArg(a string) string {
	needsQuote := false
	for _, r := range a {
		if r == ' ' || r == '"' || r == '\t' {
			needsQuote = true
			break
		}
	}
	if a == "" {
		needsQuote = true
	}
	if !needsQuote {
		return a
	}
	escaped := ""
	for _, r := range a {
		if r == '"' || r == '\\' {
			escaped += `\`
		}
		escaped += string(r)
	}
	return `"` + escaped + `"`
}
