// Package database provides SQLite connectivity for the panel.sh player.
//
// It owns the device's single database file: connection setup (WAL mode,
// busy timeout, foreign keys), 0600 file permissions, forward-only schema
// migrations, and the health probe the API exposes.
//
// # Usage
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Migrations
//
// Schema files are embedded into the binary (see the migrations package)
// and named YYYYMMDD_HHMMSS_description.up.sql. There are no down
// migrations: the device never rolls its schema back, a broken database is
// recovered by reprovisioning the player. Applied versions are tracked in
// the schema_migrations table, so Migrate is safe to run on every boot.
package database
