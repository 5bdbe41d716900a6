package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in order; each migration file
// appends itself in its init function.
var migrationsList []*gormigrate.Migration

// RunMigrations runs all registered migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)
	return m.Migrate()
}
