package identity

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded schema files, rooted at the embed
// directive (data/sql/migrations).
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationFiles returns the embedded migrations as a filesystem rooted at
// the migration directory itself, so callers can glob "*.up.sql" directly.
func MigrationFiles() (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations")
}
