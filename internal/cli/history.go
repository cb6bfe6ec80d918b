package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

type historyOptions struct {
	Job   string
	Limit int
}

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent execution log rows",
		Long: `List the most recent rows of the execution log, newest first.

Reads the audit table directly, so it requires BACKEND=postgres and
DATABASE_DSN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Job, "job", "", "filter by job (generate-obligations|check-notifications)")
	cmd.Flags().IntVar(&opts.Limit, "limit", defaultHistoryLimit, "maximum rows to print")

	return cmd
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, opts *historyOptions) error {
	var job domain.JobName
	if opts.Job != "" {
		parsed, err := domain.ParseJobNameFromString(opts.Job)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --job", err)
		}
		job = parsed
	}
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}

	env, err := rootOpts.open(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	if env.ExecutionLogs == nil {
		return NewExitError(ExitCommandError, "history requires BACKEND=postgres and DATABASE_DSN")
	}

	logs, err := env.ExecutionLogs.ListRecent(cmd.Context(), job, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read execution log", err)
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		return writeJSON(out, logs)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXECUTION TIME\tJOB\tSTATUS\tDURATION MS\tERROR")
	for _, l := range logs {
		message := ""
		if l.ErrorMessage != nil {
			message = *l.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			domain.FormatTimestamp(l.ExecutionTime), l.CronName, l.Status, l.ExecutionDurationMs, message)
	}
	return tw.Flush()
}
