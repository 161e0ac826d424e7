// Package store is the local SQLite cache of contacts and message history.
// It keeps the last-known state readable while the server is unreachable
// and backs full-text message search.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection for the profile-owned classchat.db.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// The search schema needs FTS5, which the driver omits unless built
	// with the sqlite_fts5 tag (see Makefile). Fail here with a clear
	// message instead of mid-migration with "no such module: fts5".
	var fts5 int
	row := db.QueryRow(`SELECT count(*) FROM pragma_compile_options WHERE compile_options = 'ENABLE_FTS5'`)
	if err := row.Scan(&fts5); err == nil && fts5 == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite driver built without FTS5; rebuild with -tags sqlite_fts5")
	}
	return &DB{db}, nil
}
