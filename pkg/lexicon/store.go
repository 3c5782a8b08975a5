package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/japaniel/narrator/pkg/lexica"
)

// ErrInvalidWord is returned when a word normalizes to nothing. Callers
// should fall back to the literal phrase.
var ErrInvalidWord = errors.New("lexicon: word has no usable characters")

// Persister durably stores lexeme records. Upserts are keyed by Record.Key
// and the last write wins. GetLexeme returns (nil, nil) for unknown keys.
type Persister interface {
	UpsertLexeme(rec Record) error
	GetLexeme(key Key) (*Record, error)
	ListLexemes(language string) ([]Record, error)
	DeleteLexeme(key Key) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the shared synonym graph. It keeps every known lexeme in memory
// and writes through to an optional Persister. Lookups never touch the
// Persister; Load warms the cache at startup.
type Store struct {
	mu        sync.RWMutex
	entries   map[Key]*Lexeme
	persister Persister
	logger    *slog.Logger
}

// NewStore creates a store backed by p. A nil p keeps everything in memory.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		entries:   make(map[Key]*Lexeme),
		persister: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func keyFor(language, word string, t lexica.Type) (Key, bool) {
	w := NormalizePhrase(word)
	if w == "" {
		return Key{}, false
	}
	return Key{Language: strings.ToLower(strings.TrimSpace(language)), Category: t, Word: w}, true
}

// Lookup returns the cached lexeme for (language, word, category), or nil.
func (s *Store) Lookup(language, word string, t lexica.Type) *Lexeme {
	key, ok := keyFor(language, word, t)
	if !ok {
		return nil
	}
	return s.Get(key)
}

// Get returns the cached lexeme for key, or nil.
func (s *Store) Get(key Key) *Lexeme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key]
}

// Known reports whether word exists in any category.
func (s *Store) Known(language, word string) bool {
	for _, t := range lexica.AllTypes {
		if s.Lookup(language, word, t) != nil {
			return true
		}
	}
	return false
}

// CreateOrModify returns the lexeme for (language, word, category),
// creating and persisting it if it does not exist. Concurrent calls for the
// same key resolve to the same instance. New lexemes start unmapped.
func (s *Store) CreateOrModify(language, word string, t lexica.Type) (*Lexeme, error) {
	lex, _, err := s.createOrModify(language, word, t)
	return lex, err
}

func (s *Store) createOrModify(language, word string, t lexica.Type) (*Lexeme, bool, error) {
	key, ok := keyFor(language, word, t)
	if !ok {
		return nil, false, ErrInvalidWord
	}
	return s.ensure(key)
}

func (s *Store) ensure(key Key) (*Lexeme, bool, error) {
	if lex := s.Get(key); lex != nil {
		return lex, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if lex, ok := s.entries[key]; ok {
		return lex, false, nil
	}

	if s.persister != nil {
		rec, err := s.persister.GetLexeme(key)
		if err != nil {
			return nil, false, fmt.Errorf("load lexeme %s: %w", key, err)
		}
		if rec != nil {
			lex := fromRecord(*rec)
			s.entries[key] = lex
			return lex, false, nil
		}
	}

	lex := newLexeme(key)
	if s.persister != nil {
		if err := s.persister.UpsertLexeme(lex.Record()); err != nil {
			return nil, false, fmt.Errorf("persist lexeme %s: %w", key, err)
		}
	}
	s.entries[key] = lex
	return lex, true, nil
}

// createPhrase materializes a multi-word entity from already-normalized
// parts.
func (s *Store) createPhrase(language string, parts []string, t lexica.Type) (*Lexeme, bool, error) {
	return s.createOrModify(language, strings.Join(parts, " "), t)
}

// Save writes the current state of lex through to the persister.
func (s *Store) Save(lex *Lexeme) error {
	if s.persister == nil || lex == nil {
		return nil
	}
	if err := s.persister.UpsertLexeme(lex.Record()); err != nil {
		s.logger.Error("persist lexeme failed", "key", lex.Key().String(), "error", err)
		return fmt.Errorf("persist lexeme %s: %w", lex.Key(), err)
	}
	return nil
}

// Relate links a and b in both directions and persists both.
func (s *Store) Relate(a, b *Lexeme) error {
	if a == nil || b == nil || a == b {
		return nil
	}
	changedA := a.relate(b.Key())
	changedB := b.relate(a.Key())
	var errs []error
	if changedA {
		errs = append(errs, s.Save(a))
	}
	if changedB {
		errs = append(errs, s.Save(b))
	}
	return errors.Join(errs...)
}

// Verify loads or creates the entry and clears its mapped flag so the next
// harvesting pass re-maps it.
func (s *Store) Verify(language, word string, t lexica.Type) (*Lexeme, error) {
	lex, err := s.CreateOrModify(language, word, t)
	if err != nil {
		return nil, err
	}
	lex.setSynMapped(false)
	return lex, s.Save(lex)
}

// Remove deletes a lexeme from the cache and the persister, and drops edges
// pointing at it from cached lexemes.
func (s *Store) Remove(key Key) error {
	s.mu.Lock()
	delete(s.entries, key)
	var touched []*Lexeme
	for _, lex := range s.entries {
		for _, rel := range lex.Related() {
			if rel == key {
				lex.unrelate(key)
				touched = append(touched, lex)
				break
			}
		}
	}
	s.mu.Unlock()

	var errs []error
	if s.persister != nil {
		if err := s.persister.DeleteLexeme(key); err != nil {
			errs = append(errs, fmt.Errorf("delete lexeme %s: %w", key, err))
		}
	}
	for _, lex := range touched {
		errs = append(errs, s.Save(lex))
	}
	return errors.Join(errs...)
}

// Load pulls every persisted lexeme for language ("" for all) into the
// cache. Entries already cached are kept. It returns the number added.
func (s *Store) Load(ctx context.Context, language string) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	recs, err := s.persister.ListLexemes(strings.ToLower(language))
	if err != nil {
		return 0, fmt.Errorf("list lexemes: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if _, ok := s.entries[rec.Key]; ok {
			continue
		}
		s.entries[rec.Key] = fromRecord(rec)
		added++
	}
	return added, nil
}

// Unmapped returns the keys of open-class lexemes in language that have not
// been harvested yet, sorted for stable processing order.
func (s *Store) Unmapped(language string) []Key {
	language = strings.ToLower(language)
	s.mu.RLock()
	var keys []Key
	for key, lex := range s.entries {
		if key.Language == language && !key.Category.Closed() && !lex.IsSynMapped() {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Word != keys[j].Word {
			return keys[i].Word < keys[j].Word
		}
		return keys[i].Category < keys[j].Category
	})
	return keys
}

// Len returns the number of cached lexemes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MemPersister is an in-memory Persister, used in tests and when no
// database is configured.
type MemPersister struct {
	mu      sync.RWMutex
	records map[Key]Record
}

// NewMemPersister creates an empty MemPersister.
func NewMemPersister() *MemPersister {
	return &MemPersister{records: make(map[Key]Record)}
}

func (m *MemPersister) UpsertLexeme(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = copyRecord(rec)
	return nil
}

func (m *MemPersister) GetLexeme(key Key) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	out := copyRecord(rec)
	return &out, nil
}

func (m *MemPersister) ListLexemes(language string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for key, rec := range m.records {
		if language == "" || key.Language == language {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (m *MemPersister) DeleteLexeme(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func copyRecord(rec Record) Record {
	forms := make([]Form, len(rec.Forms))
	for i, f := range rec.Forms {
		forms[i] = f.clone()
	}
	rec.Forms = forms
	return rec
}
