package migrations

import (
	"github.com/d4ytona/mpr-soluciones-app/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createCronExecutionLogTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_cron_execution_log",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ExecutionLogModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ExecutionLogModel{})
		},
	}
}
