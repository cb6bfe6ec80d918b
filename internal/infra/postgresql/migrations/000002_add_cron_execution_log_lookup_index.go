package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addCronExecutionLogLookupIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_add_cron_execution_log_lookup_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_cron_execution_log_name_time ON cron_execution_log (cron_name, execution_time DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_cron_execution_log_name_time`).Error
		},
	}
}
