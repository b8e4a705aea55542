package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema step; each file registers one.
var Migrations = migrate.NewMigrations()
