package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	Year      int
	Month     int
	CompanyID int64
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trigger now",
	}

	cmd.AddCommand(newGenerateObligationsCommand(rootOpts))
	cmd.AddCommand(newCheckNotificationsCommand(rootOpts))

	return cmd
}

func newGenerateObligationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   domain.JobGenerateObligations.String(),
		Short: "Generate the monthly obligations",
		Long: `Generate the obligations of the current month for every active company.

--year and --month backfill another period; --company-id restricts the run
to one company.

Example:
  mprcron run generate-obligations
  mprcron run generate-obligations --year 2025 --month 5 --company-id 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := opts.job(cmd)
			if err != nil {
				return err
			}
			return runTrigger(cmd, rootOpts, job)
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "period year (requires --month)")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "period month 1-12 (requires --year)")
	cmd.Flags().Int64Var(&opts.CompanyID, "company-id", 0, "restrict the run to one company")

	return cmd
}

func newCheckNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   domain.JobCheckNotifications.String(),
		Short: "Check pending obligations and emit deadline reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd, rootOpts, service.CheckNotificationsJob{})
		},
	}
}

func (o *generateOptions) job(cmd *cobra.Command) (service.GenerateObligationsJob, error) {
	job := service.GenerateObligationsJob{}

	yearSet := cmd.Flags().Changed("year")
	monthSet := cmd.Flags().Changed("month")
	if yearSet != monthSet {
		return job, NewExitError(ExitCommandError, "--year and --month must be given together")
	}
	if yearSet {
		job.Period = &service.Period{Year: o.Year, Month: o.Month}
	}
	if cmd.Flags().Changed("company-id") {
		id := o.CompanyID
		job.CompanyID = &id
	}

	// Only the overrides are checked here; the current period is always valid.
	params := domain.GenerationParams{CompanyID: job.CompanyID, Year: 1, Month: 1}
	if job.Period != nil {
		params.Year, params.Month = job.Period.Year, job.Period.Month
	}
	if err := params.Validate(); err != nil {
		return job, WrapExitError(ExitCommandError, "invalid generation parameters", err)
	}
	return job, nil
}

func runTrigger(cmd *cobra.Command, rootOpts *RootOptions, job service.Job) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := rootOpts.open(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if gen, ok := job.(service.GenerateObligationsJob); ok {
		gen.Location = env.Config.Location()
		job = gen
	}

	// The CLI is a trusted host and presents the configured secret itself.
	result := env.Runner.Run(ctx, job, service.BearerRequest(env.Settings().CronSecret))

	if err := printResult(cmd, rootOpts, result); err != nil {
		return err
	}
	if result.Outcome != domain.OutcomeSuccess {
		return NewExitError(ExitFailure, fmt.Sprintf("%s finished with %s (HTTP %d)", job.Name(), result.Outcome, result.StatusCode))
	}
	return nil
}

type runOutput struct {
	Job          domain.JobName    `json:"job"`
	RunID        string            `json:"runId"`
	Outcome      domain.RunOutcome `json:"outcome"`
	StatusCode   int               `json:"statusCode"`
	AuditWritten bool              `json:"auditWritten"`
	Body         any               `json:"body"`
}

func printResult(cmd *cobra.Command, rootOpts *RootOptions, result service.Result) error {
	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		return writeJSON(out, runOutput{
			Job:          result.Job,
			RunID:        result.RunID,
			Outcome:      result.Outcome,
			StatusCode:   result.StatusCode,
			AuditWritten: result.Audit.Written(),
			Body:         result.Body,
		})
	}

	fmt.Fprintf(out, "job:      %s\n", result.Job)
	fmt.Fprintf(out, "run id:   %s\n", result.RunID)
	fmt.Fprintf(out, "outcome:  %s (HTTP %d)\n", result.Outcome, result.StatusCode)
	fmt.Fprintf(out, "audit:    %s\n", auditLabel(result.Audit))
	fmt.Fprintf(out, "duration: %s\n", result.Duration)
	if result.Summary != nil {
		fmt.Fprintf(out, "summary:  %+v\n", result.Summary)
	}
	return nil
}

func auditLabel(audit service.AuditResult) string {
	switch {
	case !audit.Attempted:
		return "not written"
	case audit.Err != nil:
		return "failed: " + audit.Err.Error()
	default:
		return "written"
	}
}
