package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// All returns the ordered migration list for the audit schema.
func All() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createCronExecutionLogTable(),
		addCronExecutionLogLookupIndex(),
	}
}

func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, All()).Migrate()
}
