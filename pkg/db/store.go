package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

func validLexemeKey(language, category, word string) error {
	if strings.TrimSpace(language) == "" || strings.TrimSpace(category) == "" || strings.TrimSpace(word) == "" {
		return fmt.Errorf("lexeme key must be non-empty: (%q, %q, %q)", language, category, word)
	}
	return nil
}

// UpsertLexeme inserts or replaces the lexeme keyed by (language, category,
// word) and returns its id. The last write wins.
func UpsertLexeme(db DBExecutor, language, category, word string, synMapped bool, forms string) (int64, error) {
	if err := validLexemeKey(language, category, word); err != nil {
		return 0, err
	}
	if forms == "" {
		forms = "[]"
	}
	var id int64
	err := db.QueryRow(`INSERT INTO lexemes (language, category, word, syn_mapped, forms, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(language, category, word) DO UPDATE SET
	  syn_mapped = excluded.syn_mapped,
	  forms = excluded.forms,
	  updated_at = excluded.updated_at
	RETURNING id`, language, category, word, synMapped, forms, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert lexeme: %w", err)
	}
	return id, nil
}

// EnsureLexemeID returns the id of the lexeme, inserting an empty row if it
// does not exist yet. An existing row is left untouched.
func EnsureLexemeID(db DBExecutor, language, category, word string) (int64, error) {
	if err := validLexemeKey(language, category, word); err != nil {
		return 0, err
	}
	var id int64
	err := db.QueryRow(`INSERT INTO lexemes (language, category, word)
	VALUES (?, ?, ?)
	ON CONFLICT(language, category, word) DO UPDATE SET word = lexemes.word
	RETURNING id`, language, category, word).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure lexeme: %w", err)
	}
	return id, nil
}

const lexemeColumns = `id, language, category, word, syn_mapped, forms, updated_at`

func scanLexeme(s interface{ Scan(...any) error }) (LexemeRow, error) {
	var row LexemeRow
	err := s.Scan(&row.ID, &row.Language, &row.Category, &row.Word, &row.SynMapped, &row.Forms, &row.UpdatedAt)
	return row, err
}

// GetLexeme returns the lexeme row, or nil if it does not exist.
func GetLexeme(db DBExecutor, language, category, word string) (*LexemeRow, error) {
	row, err := scanLexeme(db.QueryRow(
		`SELECT `+lexemeColumns+` FROM lexemes WHERE language = ? AND category = ? AND word = ?`,
		language, category, word,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lexeme: %w", err)
	}
	return &row, nil
}

// ListLexemes returns every lexeme of language, or of all languages when
// language is empty, in insertion order.
func ListLexemes(db DBExecutor, language string) ([]LexemeRow, error) {
	rows, err := db.Query(
		`SELECT `+lexemeColumns+` FROM lexemes WHERE ? = '' OR language = ? ORDER BY id`,
		language, language,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LexemeRow
	for rows.Next() {
		row, err := scanLexeme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteLexeme removes a lexeme and its usage records.
func DeleteLexeme(db DBExecutor, language, category, word string) error {
	if _, err := db.Exec(
		`DELETE FROM lexeme_usage WHERE lexeme_id IN (SELECT id FROM lexemes WHERE language = ? AND category = ? AND word = ?)`,
		language, category, word,
	); err != nil {
		return fmt.Errorf("delete lexeme usage: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM lexemes WHERE language = ? AND category = ? AND word = ?`, language, category, word); err != nil {
		return fmt.Errorf("delete lexeme: %w", err)
	}
	return nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, author, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(
			`SELECT id FROM sources WHERE url = ? AND title = ? AND author = ?`,
			url, title, author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			trimmedSourceType, title, author, website, url, meta,
		)
		if err != nil {
			// A concurrent writer inserted the same source; select it.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	// Concurrent-safe via the UNIQUE constraint.
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// RecordUsage adds incrementAmount occurrences of a lexeme in a source. The
// first example sentence seen is kept.
func RecordUsage(db DBExecutor, lexemeID, sourceID int64, example string, incrementAmount int) error {
	if lexemeID <= 0 {
		return fmt.Errorf("lexemeID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if incrementAmount < 1 {
		return fmt.Errorf("incrementAmount must be positive, got %d", incrementAmount)
	}

	exID, err := getOrCreateSentence(db, example)
	if err != nil {
		return fmt.Errorf("get/create example sentence: %w", err)
	}

	_, err = db.Exec(`INSERT INTO lexeme_usage (lexeme_id, source_id, example_sentence_id, occurrence_count, first_seen_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(lexeme_id, source_id) DO UPDATE SET
	  occurrence_count = lexeme_usage.occurrence_count + excluded.occurrence_count,
	  example_sentence_id = COALESCE(lexeme_usage.example_sentence_id, excluded.example_sentence_id)`,
		lexemeID, sourceID, nullableInt64(exID), incrementAmount, time.Now().UTC())
	return err
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// UsageBySource returns the lexemes seen in a source, most frequent first.
func UsageBySource(db DBExecutor, sourceID int64) ([]Usage, error) {
	rows, err := db.Query(`SELECT l.id, l.language, l.category, l.word, u.source_id, u.occurrence_count, s.text
	FROM lexeme_usage u
	JOIN lexemes l ON l.id = u.lexeme_id
	LEFT JOIN sentences s ON s.id = u.example_sentence_id
	WHERE u.source_id = ?
	ORDER BY u.occurrence_count DESC, l.word`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Usage
	for rows.Next() {
		var u Usage
		var example sql.NullString
		if err := rows.Scan(&u.LexemeID, &u.Language, &u.Category, &u.Word, &u.SourceID, &u.OccurrenceCount, &example); err != nil {
			return nil, err
		}
		if example.Valid {
			u.Example = example.String
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSourceProgress returns the last processed sentence index for a source,
// or -1 when nothing has been processed yet.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed_sentence FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed sentence index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed_sentence = ? WHERE id = ?", index, sourceID)
	return err
}
