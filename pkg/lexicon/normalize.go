package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalize case-folds word and strips every character that is not a letter
// or a hyphen. It returns "" when nothing usable is left, including
// hyphen-only results.
func Normalize(word string) string {
	folded := cases.Fold().String(word)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if strings.Trim(out, "-") == "" {
		return ""
	}
	return out
}

// NormalizePhrase normalizes each space- or underscore-separated part of a
// phrase and joins the usable parts with single spaces. For a single word it
// is identical to Normalize.
func NormalizePhrase(phrase string) string {
	parts := PhraseParts(phrase)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

// PhraseParts splits a phrase on whitespace and underscores and normalizes
// each part, dropping parts that normalize to nothing.
func PhraseParts(phrase string) []string {
	raw := strings.FieldsFunc(phrase, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	})
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if n := Normalize(p); n != "" {
			parts = append(parts, n)
		}
	}
	return parts
}

// IsPhrase reports whether s joins more than one word.
func IsPhrase(s string) bool {
	return strings.ContainsAny(strings.TrimSpace(s), " _")
}

// Syllables estimates the syllable count of an (English) word by counting
// vowel groups, discounting a silent trailing "e". Every non-empty word has
// at least one syllable.
func Syllables(word string) int {
	w := Normalize(word)
	if w == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if count > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// glossSemantics extracts the first clause of a gloss (up to ';') as a list
// of normalized words, skipping the glossed word itself.
func glossSemantics(gloss, word string) []string {
	gloss = strings.TrimSpace(gloss)
	if gloss == "" {
		return nil
	}
	if i := strings.IndexByte(gloss, ';'); i >= 0 {
		gloss = gloss[:i]
	}
	var out []string
	seen := make(map[string]struct{})
	for _, f := range strings.Fields(gloss) {
		n := Normalize(f)
		if n == "" || n == word {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
