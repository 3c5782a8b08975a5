package lexicon

import (
	"strings"
	"sync"

	"github.com/japaniel/narrator/pkg/lexica"
)

// BaselineSeverity is the severity assigned to newly created and harvested
// word forms.
const BaselineSeverity = 2

// Key identifies a lexeme: one word in one language for one category.
type Key struct {
	Language string      `json:"language"`
	Category lexica.Type `json:"category"`
	Word     string      `json:"word"`
}

func (k Key) String() string {
	return k.Language + "/" + k.Category.String() + "/" + k.Word
}

// Scores place a word form in severity/elegance/quality space.
type Scores struct {
	Severity int `json:"severity"`
	Elegance int `json:"elegance"`
	Quality  int `json:"quality"`
}

// Add returns s shifted by the given deltas.
func (s Scores) Add(severity, elegance, quality int) Scores {
	return Scores{
		Severity: s.Severity + severity,
		Elegance: s.Elegance + elegance,
		Quality:  s.Quality + quality,
	}
}

// Form is one surface form of a lexeme. The first form of a lexeme is its
// primary form and carries the related-word edges.
type Form struct {
	Word        string             `json:"word"`
	Scores      Scores             `json:"scores"`
	Tense       lexica.Tense       `json:"tense"`
	Perspective lexica.Perspective `json:"perspective"`
	Semantics   []string           `json:"semantics,omitempty"`
	Related     []Key              `json:"related,omitempty"`
}

func (f Form) clone() Form {
	f.Semantics = append([]string(nil), f.Semantics...)
	f.Related = append([]Key(nil), f.Related...)
	return f
}

// Record is the persisted shape of a lexeme.
type Record struct {
	Key       Key    `json:"key"`
	SynMapped bool   `json:"syn_mapped"`
	Forms     []Form `json:"forms"`
}

// Lexeme is a dictionary entry. A *Lexeme obtained from a Store is the
// single live instance for its Key; all of its methods are safe for
// concurrent use.
type Lexeme struct {
	key Key

	mu        sync.RWMutex
	synMapped bool
	forms     []Form
}

func newLexeme(key Key) *Lexeme {
	return &Lexeme{
		key: key,
		forms: []Form{{
			Word: key.Word,
			Scores: Scores{
				Severity: BaselineSeverity,
				Elegance: 3 * Syllables(key.Word),
				Quality:  1,
			},
		}},
	}
}

func fromRecord(rec Record) *Lexeme {
	l := &Lexeme{key: rec.Key, synMapped: rec.SynMapped}
	for _, f := range rec.Forms {
		l.forms = append(l.forms, f.clone())
	}
	if len(l.forms) == 0 {
		l.forms = newLexeme(rec.Key).forms
	}
	return l
}

func (l *Lexeme) Key() Key              { return l.key }
func (l *Lexeme) Word() string          { return l.key.Word }
func (l *Lexeme) Language() string      { return l.key.Language }
func (l *Lexeme) Category() lexica.Type { return l.key.Category }

// IsSynMapped reports whether the lexeme has already been harvested.
func (l *Lexeme) IsSynMapped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.synMapped
}

func (l *Lexeme) setSynMapped(v bool) {
	l.mu.Lock()
	l.synMapped = v
	l.mu.Unlock()
}

// Primary returns a copy of the primary form.
func (l *Lexeme) Primary() Form {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.forms[0].clone()
}

// Forms returns copies of every form.
func (l *Lexeme) Forms() []Form {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Form, len(l.forms))
	for i, f := range l.forms {
		out[i] = f.clone()
	}
	return out
}

// FormFor finds the form for a tense and perspective. An exact match wins;
// otherwise a form of the right tense that does not vary by person is used.
func (l *Lexeme) FormFor(tense lexica.Tense, perspective lexica.Perspective) (Form, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, f := range l.forms {
		if f.Tense == tense && f.Perspective == perspective {
			return f.clone(), true
		}
	}
	for _, f := range l.forms {
		if f.Tense == tense && f.Perspective == lexica.PerspectiveNone {
			return f.clone(), true
		}
	}
	return Form{}, false
}

// SetScores replaces the scores of the primary form.
func (l *Lexeme) SetScores(s Scores) {
	l.mu.Lock()
	l.forms[0].Scores = s
	l.mu.Unlock()
}

// SetSemantics replaces the semantic tags of the primary form.
func (l *Lexeme) SetSemantics(words []string) {
	l.mu.Lock()
	l.forms[0].Semantics = append([]string(nil), words...)
	l.mu.Unlock()
}

// AddForm adds or replaces the form for f's tense and perspective. Related
// edges always live on the primary form and are not taken from f. The
// primary form itself can not be replaced this way.
func (l *Lexeme) AddForm(f Form) bool {
	f = f.clone()
	f.Word = strings.TrimSpace(f.Word)
	if f.Word == "" {
		return false
	}
	f.Related = nil

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 1; i < len(l.forms); i++ {
		if l.forms[i].Tense == f.Tense && l.forms[i].Perspective == f.Perspective {
			l.forms[i] = f
			return true
		}
	}
	if l.forms[0].Tense == f.Tense && l.forms[0].Perspective == f.Perspective {
		return false
	}
	l.forms = append(l.forms, f)
	return true
}

// Related returns the keys of directly related words.
func (l *Lexeme) Related() []Key {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Key(nil), l.forms[0].Related...)
}

// relate adds a directed edge to key. It returns false if the edge exists.
func (l *Lexeme) relate(key Key) bool {
	if key == l.key {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.forms[0].Related {
		if k == key {
			return false
		}
	}
	l.forms[0].Related = append(l.forms[0].Related, key)
	return true
}

func (l *Lexeme) unrelate(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rel := l.forms[0].Related[:0]
	for _, k := range l.forms[0].Related {
		if k != key {
			rel = append(rel, k)
		}
	}
	l.forms[0].Related = rel
}

// Record returns a snapshot suitable for persistence.
func (l *Lexeme) Record() Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec := Record{Key: l.key, SynMapped: l.synMapped, Forms: make([]Form, len(l.forms))}
	for i, f := range l.forms {
		rec.Forms[i] = f.clone()
	}
	return rec
}
