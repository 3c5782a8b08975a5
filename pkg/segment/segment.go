// Package segment splits corpus text into sentences of tokens tagged with a
// lexical category, for seeding the lexicon.
package segment

import (
	"fmt"
	"strings"

	"github.com/japaniel/narrator/pkg/lexica"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface  string // The text as it appears (e.g. "行っ", "Running")
	BaseForm string // The dictionary form when known (e.g. "行く")
	Reading  string // Japanese only: katakana pronunciation
	// POS holds the analyzer's raw part-of-speech labels, if any.
	POS  []string
	Type lexica.Type
}

// Lemma is the form stored in the lexicon: the base form when the analyzer
// found one, otherwise the surface text.
func (t Token) Lemma() string {
	if t.BaseForm != "" && t.BaseForm != "*" {
		return t.BaseForm
	}
	return t.Surface
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Segmenter splits a document into tokenized sentences.
type Segmenter interface {
	Segment(text string) ([]Sentence, error)
}

// ForLanguage returns the segmenter for a language tag.
func ForLanguage(language string) (Segmenter, error) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "ja", "jpn", "japanese":
		return NewJapanese()
	case "":
		return nil, fmt.Errorf("segment: language is required")
	default:
		return NewSimple(language), nil
	}
}

// splitSentences breaks text after each terminator rune.
func splitSentences(text string, isTerminator func(rune) bool) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if isTerminator(r) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
