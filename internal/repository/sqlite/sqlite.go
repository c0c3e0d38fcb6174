// Package sqlite implements the repository contracts using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a
// single file. No separate database server to install, configure, or
// manage. It is the default backend: a habit tracker is a single-owner
// dataset and a file on disk is exactly the right amount of
// infrastructure. The postgres package provides the same contract for a
// remote deployment, and jsonfile for a plain-file local store.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a
// C compiler installed and cross-compilation becomes painful.
// modernc.org/sqlite is a pure Go translation of the SQLite C code — no C
// compiler needed, works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite. This is Go's plugin pattern — database
	// drivers register themselves at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
// It implements repository.HabitRepository and repository.UserRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/habits.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (great for tests)
//
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call Ping() to force an immediate connection so a bad path
// or permissions issue surfaces here, not on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening.
	// Default SQLite locks the entire database during writes, which is
	// painful for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// We need them ON so completion rows follow their habit (ON DELETE
	// CASCADE) and habits follow their user.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Wherever you call New(),
// immediately defer Close() — the server does this on graceful shutdown
// to flush the WAL and release the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent —
// safe to run on every startup against an existing database.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			age           INTEGER NOT NULL DEFAULT 0,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		-- Partial indexes: GitHub accounts may hide their email, so the
		-- empty string must stay non-unique; github_id 0 means "no GitHub
		-- identity" for password accounts.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(email) WHERE email != '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id != 0;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// repeat_days is stored as a JSON array of weekday indices. SQLite has
	// no array type and the set is tiny (at most 7 ints), so a TEXT column
	// beats a join table here.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS habits (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			icon             TEXT NOT NULL DEFAULT '',
			color_id         TEXT NOT NULL DEFAULT '',
			reminder_enabled INTEGER NOT NULL DEFAULT 0,
			reminder_time    TEXT NOT NULL DEFAULT '',
			repeat_days      TEXT NOT NULL DEFAULT '[]',
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			position         INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating habits table: %w", err)
	}

	// The PRIMARY KEY on (habit_id, date) IS the toggle invariant: a day
	// can be recorded at most once per habit, enforced by the engine
	// rather than by application reads.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS completions (
			habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
			user_id  TEXT NOT NULL,
			date     TEXT NOT NULL,
			PRIMARY KEY (habit_id, date)
		);
		CREATE INDEX IF NOT EXISTS idx_completions_user_id ON completions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating completions table: %w", err)
	}

	return nil
}
