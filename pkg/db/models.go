package db

import "time"

// LexemeRow is a persisted lexeme. Forms holds the JSON-encoded word forms.
type LexemeRow struct {
	ID        int64
	Language  string
	Category  string
	Word      string
	SynMapped bool
	Forms     string
	UpdatedAt time.Time
}

// Usage is how often a lexeme was seen in one source.
type Usage struct {
	LexemeID        int64
	Language        string
	Category        string
	Word            string
	SourceID        int64
	OccurrenceCount int
	Example         string
}
