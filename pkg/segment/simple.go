package segment

import (
	"strings"
	"unicode"

	"github.com/japaniel/narrator/pkg/lexica"
)

var (
	articles     = wordSet("a an the this that these those")
	conjunctions = wordSet("and or but nor so yet for because although while if unless")
	pronouns     = wordSet("i me my mine you your yours he him his she her hers it its we us our ours they them their theirs who whom whose what which")
	adverbs      = wordSet("very too quite not never always often soon here there now then")
	// Prepositions and auxiliaries carry no category of their own.
	functionWords = wordSet("of in on at to from by with about as into over under is are was were be been am do does did has have had will would can could shall should may might must")
)

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// Simple segments space-delimited languages. Categories come from small
// closed-class word lists (English only) and a suffix heuristic; everything
// else is treated as a noun.
type Simple struct {
	Language string
}

// NewSimple creates a segmenter for language.
func NewSimple(language string) *Simple {
	return &Simple{Language: strings.ToLower(language)}
}

// Segment splits the text on sentence punctuation and newlines.
func (s *Simple) Segment(text string) ([]Sentence, error) {
	var result []Sentence
	for _, sent := range splitSentences(text, isSimpleTerminator) {
		tokens := s.tokens(sent)
		if len(tokens) == 0 {
			continue
		}
		result = append(result, Sentence{Text: sent, Tokens: tokens})
	}
	return result, nil
}

func isSimpleTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
}

func (s *Simple) tokens(sentence string) []Token {
	words := strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	out := make([]Token, 0, len(words))
	for i, w := range words {
		w = strings.Trim(w, "-'")
		if w == "" {
			continue
		}
		out = append(out, Token{Surface: w, Type: s.classify(w, i == 0)})
	}
	return out
}

func (s *Simple) classify(word string, first bool) lexica.Type {
	lower := strings.ToLower(word)
	if strings.IndexFunc(lower, unicode.IsLetter) < 0 {
		return lexica.TypeNone
	}
	if s.Language == "en" {
		if _, ok := functionWords[lower]; ok {
			return lexica.TypeNone
		}
		if _, ok := articles[lower]; ok {
			return lexica.TypeArticle
		}
		if _, ok := conjunctions[lower]; ok {
			return lexica.TypeConjunction
		}
		if _, ok := pronouns[lower]; ok {
			return lexica.TypePronoun
		}
		if _, ok := adverbs[lower]; ok {
			return lexica.TypeAdverb
		}
		if len(lower) > 4 && strings.HasSuffix(lower, "ly") {
			return lexica.TypeAdverb
		}
	}
	if !first && unicode.IsUpper([]rune(word)[0]) {
		return lexica.TypeProperNoun
	}
	return lexica.TypeNoun
}
