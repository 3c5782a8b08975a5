package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// migrationsSQL is the schema, one statement per ';'. Statements must not
// contain semicolons themselves.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS lexemes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	language TEXT NOT NULL,
	category TEXT NOT NULL,
	word TEXT NOT NULL,
	syn_mapped INTEGER NOT NULL DEFAULT 0,
	forms TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(language, category, word)
);

CREATE INDEX IF NOT EXISTS idx_lexemes_language ON lexemes(language);

CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	website TEXT,
	url TEXT NOT NULL DEFAULT '',
	meta TEXT,
	last_processed_sentence INTEGER NOT NULL DEFAULT -1,
	added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(url, title, author)
);

CREATE TABLE IF NOT EXISTS sentences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lexeme_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lexeme_id INTEGER NOT NULL REFERENCES lexemes(id) ON DELETE CASCADE,
	source_id INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	example_sentence_id INTEGER REFERENCES sentences(id),
	occurrence_count INTEGER NOT NULL DEFAULT 0,
	first_seen_at DATETIME,
	UNIQUE(lexeme_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_lexeme_usage_source ON lexeme_usage(source_id);
`

// InitDB runs migrations on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Open opens (creating if needed) the SQLite database at path and migrates
// it. Foreign keys are enforced and writers wait on a busy database instead
// of failing straight away.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has one writer; a single connection keeps batch transactions
	// and write-through lexeme upserts from failing with SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
