package registry

import (
	"embed"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the directory holding the goose migrations inside GetMigrationsFS
const MigrationsDir = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
