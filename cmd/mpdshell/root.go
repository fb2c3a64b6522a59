// =============================================================================
// root.go - Command Tree and Session Startup
// =============================================================================
//
// The root command connects and runs a front end; "version" and "config"
// are informational subcommands. Settings come from internal/config, so
// every flag here can also be set in the config file or through an
// MPDSHELL_* environment variable.
//
// SIGINT and SIGTERM cancel the session context. Both front ends watch it
// and return, and the deferred Close sends the protocol close command
// before the socket goes away.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/SirJson/mpdshell/internal/config"
	"github.com/SirJson/mpdshell/internal/logger"
	"github.com/SirJson/mpdshell/internal/session"
	"github.com/SirJson/mpdshell/internal/tui"
)

// GO CONCEPT: Constructors Instead of Package-Level Commands
// ----------------------------------------------------------
// cobra examples often declare commands as package-level variables and
// wire them up in init(). Building the tree in a function instead means
// each call gets fresh flag values, which lets tests run the CLI many
// times in one process without state leaking between runs.

// newRootCommand builds the command tree.
func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   appName + " [host]",
		Short: "Interactive shell for the Music Player Daemon protocol",
		Long: `mpdshell connects to an MPD server and sends protocol commands as you
type them. Replies are printed as they arrive, each under a timestamp.

Lines starting with "!" are shell commands; type !help for the list.
The host defaults to MPD_HOST, or localhost.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile, hostArg(args))
			if err != nil {
				return err
			}
			return runShell(cmd, cfg)
		},
	}
	cmd.SetVersionTemplate(fullTitle() + "\n")

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: <user config dir>/mpdshell/config.toml)")
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(newVersionCommand(), newConfigCommand(&configFile))
	return cmd
}

func hostArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// runShell connects, runs the selected front end, and disconnects.
func runShell(cmd *cobra.Command, cfg config.Config) error {
	if err := logger.Initialize(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	// GO CONCEPT: Signals as Context Cancellation
	// -------------------------------------------
	// signal.NotifyContext returns a context that is cancelled when one of
	// the listed signals arrives. Anything that already watches a context,
	// here the REPL printer and the bubbletea program, stops on Ctrl-C or
	// kill without a dedicated signal goroutine. Calling stop restores the
	// default signal behaviour, so a second Ctrl-C during shutdown still
	// kills the process.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	fmt.Fprintf(out, "Connecting to %s@%d...\n", cfg.Host, cfg.Port)
	s, err := session.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ui := resolveUI(cfg.UI, in, out)
	logger.Debug("starting front end", "ui", ui, "config", cfg.File)

	var reason string
	switch ui {
	case config.UITUI:
		reason, err = tui.Run(s, cfg.PollInterval, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
		if errors.Is(err, tea.ErrProgramKilled) {
			err = nil
		}
	default:
		editor := newLineEditor(in, out, cfg.HistoryFile, s.Completions())
		defer editor.Close()
		reason, err = runREPL(ctx, s, editor, cfg.PollInterval)
	}
	if err != nil {
		return err
	}
	if reason != "" {
		fmt.Fprintln(out, reason)
	}
	return nil
}

// resolveUI turns "auto" into the full-screen UI when both ends are a
// terminal and the REPL otherwise.
func resolveUI(ui string, in io.Reader, out io.Writer) string {
	if ui != config.UIAuto {
		return ui
	}
	if isTerminal(in) && isTerminal(out) {
		return config.UITUI
	}
	return config.UIREPL
}
