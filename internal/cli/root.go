// Package cli wires the cyclectl commands.
package cli

import (
	"codeberg.org/mutker/cyclectl/internal/config"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"github.com/spf13/cobra"
)

// Exit codes returned by cmd/cyclectl.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitConfigError    = 2
	ExitAlreadyRunning = 3
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// NewRootCommand builds the cyclectl command tree. Configuration flags are
// persistent so every subcommand loads the same settings.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cyclectl",
		Short: "Periodic control cycle with heartbeat monitoring",
		Long: `cyclectl runs a fixed-period control cycle, feeds each cycle the
current system tick, and emits a heartbeat every N cycles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.HasCode(err, errors.ErrAlreadyRunning):
		return ExitAlreadyRunning
	case errors.HasCode(err, errors.ErrInvalidConfig),
		errors.HasCode(err, errors.ErrReadConfig),
		errors.HasCode(err, errors.ErrBindFlags),
		errors.HasCode(err, errors.ErrInvalidInterval),
		errors.HasCode(err, errors.ErrInvalidCycle),
		errors.HasCode(err, errors.ErrInvalidLogLevel):
		return ExitConfigError
	default:
		return ExitFailure
	}
}
