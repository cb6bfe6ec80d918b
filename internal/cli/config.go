package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}

			masked := cfg.Masked()
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, masked)
			}

			rows := []struct {
				key   string
				value any
			}{
				{"CRON_SECRET", masked.CronSecret},
				{"BACKEND", masked.Backend},
				{"SUPABASE_URL", masked.SupabaseURL},
				{"SUPABASE_SERVICE_ROLE_KEY", masked.SupabaseServiceKey},
				{"BACKEND_TIMEOUT", masked.BackendTimeout},
				{"DATABASE_DSN", masked.DatabaseDSN},
				{"DATABASE_MIGRATE", masked.DatabaseMigrate},
				{"REDIS_URL", masked.RedisURL},
				{"AMQP_URL", masked.AMQPURL},
				{"TRIGGER_RATE_LIMIT_PER_SEC", masked.RateLimitPerSec},
				{"API_PORT", masked.APIPort},
				{"LOG_LEVEL", masked.LogLevel},
				{"SCHEDULER_ENABLED", masked.SchedulerEnabled},
				{"SCHEDULER_TIMEZONE", masked.SchedulerTimezone},
				{"GENERATE_OBLIGATIONS_SCHEDULE", masked.GenerateObligationsSchedule},
				{"CHECK_NOTIFICATIONS_SCHEDULE", masked.CheckNotificationsSchedule},
			}
			for _, row := range rows {
				fmt.Fprintf(out, "%-30s %v\n", row.key, row.value)
			}
			return nil
		},
	}
}
