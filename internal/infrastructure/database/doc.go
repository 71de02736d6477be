// Package database provides the SQLite connection and schema migrations
// behind the link store.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_description.up.sql
// with an optional matching .down.sql. The migrations package embeds them
// and registers the filesystem through MigrationsFS at init time. Each
// migration runs in its own transaction and is recorded in
// schema_migrations, so Migrate is safe to call on every start.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
