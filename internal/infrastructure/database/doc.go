// Package database provides the SQLite file behind the bridge's persistent
// key-value areas.
//
// This package manages:
//   - Opening the database with busy timeout and optional WAL mode
//   - Versioned schema migrations read from an fs.FS
//   - Health checks used by the health reporter
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600; it holds Wi-Fi credentials
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS()); err != nil {
//	    return err
//	}
package database
