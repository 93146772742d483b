// Package cli provides the command-line interface for taskplan.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/clock"
	"github.com/harrisonrobin/taskplan/pkg/config"
	"github.com/harrisonrobin/taskplan/pkg/logging"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// ConfigPath overrides the default configuration file.
	ConfigPath string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// JSON switches command output to JSON.
	JSON bool
}

// AddGlobalFlags adds global flags to a command.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "configuration file (default $XDG_CONFIG_HOME/taskplan/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "print results as JSON")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// newRootCmd creates the root command. Every subcommand shares a, which is
// filled in by PersistentPreRunE.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskplan",
		Short: "Plan flexible tasks into the free time around your calendar",
		Long: `taskplan scores your open tasks and places them into the free windows
left between fixed calendar events, separately for work and personal hours.

Tasks come from the local store, Taskwarrior or a YAML file; busy time comes
from Google Calendar or a YAML file. Plans can be published back to a
dedicated calendar.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, a.flags)

	AddPlanCommand(cmd, a)
	AddExplainCommand(cmd, a)
	AddTaskCommands(cmd, a)
	AddProjectCommands(cmd, a)
	AddImportCommand(cmd, a)
	AddHookCommand(cmd, a)
	AddAuthCommand(cmd, a)
	AddConfigCommand(cmd, a)
	AddDaemonCommand(cmd, a)

	return cmd
}

// Execute runs the root command with the provided context.
func Execute(ctx context.Context) error {
	a := &app{flags: &GlobalFlags{}, clock: clock.RealClock{}}
	cmd := newRootCmd(a)
	return cmd.ExecuteContext(ctx)
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags  *GlobalFlags
	clock  clock.Clock
	cfg    *config.Config
	log    *logging.Logger
	logger zerolog.Logger
}

func (a *app) init(ctx context.Context) error {
	// The config loader logs through the context logger; nothing is set up yet.
	cfg, err := config.Load(ctx, a.flags.ConfigPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Verbose: a.flags.Verbose,
		Quiet:   a.flags.Quiet,
		File:    cfg.Resolve(cfg.Log.File),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.logger = log.Logger
	return nil
}

func (a *app) close() error {
	if a.log == nil {
		return nil
	}
	return a.log.Close()
}
