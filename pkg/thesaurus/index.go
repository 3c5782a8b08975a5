package thesaurus

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
)

// Index is an in-memory Oracle over loaded entries.
type Index struct {
	// Key: folded word (headword or synset member), Value: synsets containing it.
	mu    sync.RWMutex
	index map[string][]SynSetRecord
}

var _ lexicon.Oracle = (*Index)(nil)

// NewIndex indexes every synset under its headword and each of its members.
func NewIndex(entries []Entry) *Index {
	idx := &Index{index: make(map[string][]SynSetRecord)}
	for _, e := range entries {
		for i, s := range e.SynSets {
			if s.ID == "" {
				s.ID = fmt.Sprintf("%s#%d", e.Word, i)
			}
			idx.add(e.Word, s)
			for _, w := range s.Words {
				idx.add(w, s)
			}
		}
	}
	return idx
}

func (ix *Index) add(word string, s SynSetRecord) {
	key := foldKey(word)
	if key == "" {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, have := range ix.index[key] {
		if have.ID == s.ID {
			return
		}
	}
	ix.index[key] = append(ix.index[key], s)
}

// Len returns the number of indexed words.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.index)
}

// SynSets returns the synsets containing word whose category is one of
// categories, ordered by synset ID.
func (ix *Index) SynSets(ctx context.Context, word string, categories []lexica.Type) ([]lexicon.SynSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	records := slices.Clone(ix.index[foldKey(word)])
	ix.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	var out []lexicon.SynSet
	for _, r := range records {
		cat := ParseCategory(r.POS)
		if !slices.Contains(categories, cat) {
			continue
		}
		out = append(out, lexicon.SynSet{
			Category: cat,
			Words:    slices.Clone(r.Words),
			Gloss:    r.Gloss,
		})
	}
	return out, nil
}

// foldKey lowercases word, joins multi-word phrases with underscores, and
// folds katakana to hiragana so either script finds Japanese entries.
func foldKey(word string) string {
	return ToHiragana(strings.Join(strings.Fields(strings.ToLower(word)), "_"))
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
