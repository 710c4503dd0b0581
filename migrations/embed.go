// Package migrations embeds the SQLite schema migrations into the binary.
//
// Files follow YYYYMMDD_HHMMSS_name.up.sql / .down.sql and are applied by
// database.DB.Migrate in version order.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS returns the embedded migration files, rooted at this directory.
func FS() embed.FS {
	return files
}
