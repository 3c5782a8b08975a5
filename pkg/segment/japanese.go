package segment

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/japaniel/narrator/pkg/lexica"
)

// Japanese segments text with the kagome morphological analyzer.
type Japanese struct {
	t *tokenizer.Tokenizer
}

// NewJapanese creates a new tokenizer instance over the IPA dictionary.
func NewJapanese() (*Japanese, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Japanese{t: t}, nil
}

// Analyze breaks text into tokens with readings, base forms and categories.
func (j *Japanese) Analyze(text string) []Token {
	var result []Token
	for _, token := range j.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0 POS, 1-3 sub-POS, 4 conjugation type,
		// 5 conjugation form, 6 base form, 7 reading, 8 pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}

		result = append(result, Token{
			Surface:  token.Surface,
			BaseForm: base,
			Reading:  reading,
			POS:      features,
			Type:     japaneseType(features),
		})
	}
	return result
}

// Segment splits the text into sentences and tokenizes each sentence.
func (j *Japanese) Segment(text string) ([]Sentence, error) {
	var result []Sentence
	for _, s := range splitSentences(text, isJapaneseTerminator) {
		result = append(result, Sentence{Text: s, Tokens: j.Analyze(s)})
	}
	return result, nil
}

// 。(3002), ！(FF01), ？(FF1F) and newlines end a sentence.
func isJapaneseTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？' || r == '\n'
}

// japaneseType maps IPA part-of-speech labels to a lexical category.
// Particles, auxiliaries and symbols have no category.
func japaneseType(features []string) lexica.Type {
	if len(features) == 0 {
		return lexica.TypeNone
	}
	sub := ""
	if len(features) > 1 {
		sub = features[1]
	}
	switch features[0] {
	case "名詞":
		switch sub {
		case "固有名詞":
			return lexica.TypeProperNoun
		case "代名詞":
			return lexica.TypePronoun
		case "数", "非自立", "接尾":
			return lexica.TypeNone
		case "形容動詞語幹":
			return lexica.TypeAdjective
		default:
			return lexica.TypeNoun
		}
	case "動詞":
		if sub == "非自立" || sub == "接尾" {
			return lexica.TypeNone
		}
		return lexica.TypeVerb
	case "形容詞":
		return lexica.TypeAdjective
	case "副詞":
		return lexica.TypeAdverb
	case "接続詞":
		return lexica.TypeConjunction
	case "連体詞":
		return lexica.TypeArticle
	default:
		return lexica.TypeNone
	}
}
