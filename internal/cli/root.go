package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/d4ytona/mpr-soluciones-app/internal/bootstrap"
	"github.com/d4ytona/mpr-soluciones-app/internal/config"
	"github.com/d4ytona/mpr-soluciones-app/internal/observability"
	"github.com/d4ytona/mpr-soluciones-app/internal/repository"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validFormats = []string{"text", "json"}

// Environment is what a command needs from the wired application.
type Environment struct {
	Config   *config.Config
	Runner   service.TriggerRunner
	Settings service.SettingsSource
	// Nil unless the postgres backend is configured.
	ExecutionLogs repository.ExecutionLogRepository
	Close         func() error
}

type RootOptions struct {
	Verbose bool
	Format  string

	Out io.Writer

	LoadConfig func() (*config.Config, error)
	Connect    func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Environment, error)
}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Connect == nil {
		opts.Connect = connect
	}

	cmd := &cobra.Command{
		Use:   "mprcron",
		Short: "Operate the obligation and deadline triggers",
		Long: `mprcron runs the obligation generator and the notification checker once,
outside of the schedule, and inspects their configuration and history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats))
		},
	}
	cmd.SetOut(opts.Out)

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// logger writes to stderr; only warnings unless --verbose.
func (o *RootOptions) logger() (*zap.Logger, error) {
	if o.Verbose {
		return observability.NewLogger("debug")
	}
	return observability.NewLogger("warn")
}

// open loads configuration and wires the application for one command.
func (o *RootOptions) open(ctx context.Context) (*Environment, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	logger, err := o.logger()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}

	env, err := o.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize dependencies", err)
	}
	if env.Config == nil {
		env.Config = cfg
	}
	return env, nil
}

func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Environment, error) {
	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		Config:   cfg,
		Runner:   deps.Runner,
		Settings: deps.Settings,
		Close:    deps.Close,
	}
	if deps.ExecutionLogs != nil {
		env.ExecutionLogs = deps.ExecutionLogs
	}
	return env, nil
}

func (e *Environment) close() {
	if e != nil && e.Close != nil {
		_ = e.Close()
	}
}
