// Package database provides SQLite database connectivity for authcore.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations
//   - Connection lifecycle management
//   - STRICT mode schema for type safety
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the migrations package and are embedded into the
// binary. Each migration has both an .up.sql and a .down.sql file named
// YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database
