// Package database provides SQLite connectivity for the valve bridge.
//
// It is used by the sqlite valve store backend. The package manages:
//   - Opening the database file (or ":memory:") with WAL mode and a busy timeout
//   - Schema migrations embedded in the binary (see the migrations package)
//   - Health checks
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "db/valves.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
