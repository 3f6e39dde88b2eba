package vdrpool

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the operation journal schema, with the sqlite variant
// under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the full embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}

// GetCoreMigrationsFS returns the journal schema tree used by migrations.Register.
func GetCoreMigrationsFS() fs.FS {
	return migrationsFS
}
