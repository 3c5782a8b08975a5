// Package thesaurus provides synonym oracles for lexicon harvesting: an
// in-memory index over a JSON synset file and an HTTP client for a remote
// synset service.
package thesaurus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/japaniel/narrator/pkg/lexica"
)

// Entry is one headword and the synonym sets it belongs to.
type Entry struct {
	Word    string         `json:"word"`
	SynSets []SynSetRecord `json:"synsets"`
}

// SynSetRecord is a synonym set as stored on disk or returned by a remote
// service. POS uses WordNet letters ("n", "v", "a", "s", "r") or full names.
type SynSetRecord struct {
	ID    string   `json:"id,omitempty"`
	POS   string   `json:"pos"`
	Words []string `json:"words"`
	Gloss string   `json:"gloss,omitempty"`
}

// ParseCategory maps a part-of-speech tag to a lexical category. Unknown tags
// map to TypeNone.
func ParseCategory(pos string) lexica.Type {
	switch strings.ToLower(strings.TrimSpace(pos)) {
	case "n", "noun":
		return lexica.TypeNoun
	case "v", "verb":
		return lexica.TypeVerb
	case "a", "s", "adj", "adjective":
		return lexica.TypeAdjective
	case "r", "adv", "adverb":
		return lexica.TypeAdverb
	default:
		return lexica.TypeNone
	}
}

// posTag is the short tag sent to remote services.
func posTag(t lexica.Type) string {
	switch t {
	case lexica.TypeNoun:
		return "n"
	case lexica.TypeVerb:
		return "v"
	case lexica.TypeAdjective:
		return "a"
	case lexica.TypeAdverb:
		return "r"
	default:
		return ""
	}
}

// Load reads a synset file. The file is either an object wrapper
// {"entries": [...]} or a bare array of entries.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapped struct {
		Entries []Entry `json:"entries"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapped); err == nil && len(wrapped.Entries) > 0 {
		return wrapped.Entries, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []Entry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse thesaurus as object or array: %w", err)
	}
	return entries, nil
}
