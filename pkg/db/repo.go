package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
)

// LexemeRepo persists lexicon records in SQLite.
type LexemeRepo struct {
	conn *sql.DB
}

var _ lexicon.Persister = (*LexemeRepo)(nil)

// NewLexemeRepo wraps an initialised connection.
func NewLexemeRepo(conn *sql.DB) *LexemeRepo {
	return &LexemeRepo{conn: conn}
}

func (r *LexemeRepo) UpsertLexeme(rec lexicon.Record) error {
	forms, err := json.Marshal(rec.Forms)
	if err != nil {
		return fmt.Errorf("encode forms for %s: %w", rec.Key, err)
	}
	_, err = UpsertLexeme(r.conn, rec.Key.Language, rec.Key.Category.String(), rec.Key.Word, rec.SynMapped, string(forms))
	return err
}

func (r *LexemeRepo) GetLexeme(key lexicon.Key) (*lexicon.Record, error) {
	row, err := GetLexeme(r.conn, key.Language, key.Category.String(), key.Word)
	if err != nil || row == nil {
		return nil, err
	}
	rec, err := toRecord(*row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *LexemeRepo) ListLexemes(language string) ([]lexicon.Record, error) {
	rows, err := ListLexemes(r.conn, language)
	if err != nil {
		return nil, err
	}
	out := make([]lexicon.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *LexemeRepo) DeleteLexeme(key lexicon.Key) error {
	return DeleteLexeme(r.conn, key.Language, key.Category.String(), key.Word)
}

// ID returns the row id of a lexeme, creating an empty row if needed.
func (r *LexemeRepo) ID(key lexicon.Key) (int64, error) {
	return EnsureLexemeID(r.conn, key.Language, key.Category.String(), key.Word)
}

func toRecord(row LexemeRow) (lexicon.Record, error) {
	category, err := lexica.ParseType(row.Category)
	if err != nil {
		return lexicon.Record{}, fmt.Errorf("lexeme %d: %w", row.ID, err)
	}
	rec := lexicon.Record{
		Key:       lexicon.Key{Language: row.Language, Category: category, Word: row.Word},
		SynMapped: row.SynMapped,
	}
	if err := json.Unmarshal([]byte(row.Forms), &rec.Forms); err != nil {
		return lexicon.Record{}, fmt.Errorf("decode forms of lexeme %d: %w", row.ID, err)
	}
	return rec, nil
}
