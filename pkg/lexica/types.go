// Package lexica models narration "meaning trees": words and phrases tagged
// with a grammatical role and a lexical category, each carrying a set of
// modifier nodes.
package lexica

import (
	"fmt"
	"strings"
)

// Role is the grammatical role a node plays relative to the node it modifies.
// The ordinal order of the constants is the canonical render order.
type Role int

const (
	RoleNone Role = iota
	RoleSubject
	RoleVerb
	RoleDirectObject
	RoleIndirectObject
	RoleDescriptive
	RolePossessive
	RoleInterjection
	RoleConjunction
)

// AllRoles lists every known role in render order.
var AllRoles = []Role{
	RoleNone, RoleSubject, RoleVerb, RoleDirectObject, RoleIndirectObject,
	RoleDescriptive, RolePossessive, RoleInterjection, RoleConjunction,
}

var roleNames = map[Role]string{
	RoleNone:           "None",
	RoleSubject:        "Subject",
	RoleVerb:           "Verb",
	RoleDirectObject:   "DirectObject",
	RoleIndirectObject: "IndirectObject",
	RoleDescriptive:    "Descriptive",
	RolePossessive:     "Possessive",
	RoleInterjection:   "Interjection",
	RoleConjunction:    "Conjunction",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Type is the lexical category of a word.
type Type int

const (
	TypeNoun Type = iota
	TypeVerb
	TypeAdjective
	TypeAdverb
	TypeArticle
	TypeConjunction
	TypePronoun
	TypeProperNoun
	TypeNone
)

// AllTypes lists every known category in ordinal order.
var AllTypes = []Type{
	TypeNoun, TypeVerb, TypeAdjective, TypeAdverb, TypeArticle,
	TypeConjunction, TypePronoun, TypeProperNoun, TypeNone,
}

// OpenTypes are the categories a synonym oracle is asked about.
var OpenTypes = []Type{TypeNoun, TypeVerb, TypeAdjective, TypeAdverb}

var typeNames = map[Type]string{
	TypeNoun:        "Noun",
	TypeVerb:        "Verb",
	TypeAdjective:   "Adjective",
	TypeAdverb:      "Adverb",
	TypeArticle:     "Article",
	TypeConjunction: "Conjunction",
	TypePronoun:     "Pronoun",
	TypeProperNoun:  "ProperNoun",
	TypeNone:        "None",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Closed reports whether t is a closed-class category. Closed-class words
// never take part in synonym harvesting or substitution. Unknown values are
// treated as closed.
func (t Type) Closed() bool {
	switch t {
	case TypeNoun, TypeVerb, TypeAdjective, TypeAdverb:
		return false
	case TypeArticle, TypeConjunction, TypePronoun, TypeProperNoun, TypeNone:
		return true
	default:
		return true
	}
}

// Nominal reports whether t names a thing (and so takes pre-modifiers).
func (t Type) Nominal() bool {
	return t == TypeNoun || t == TypeProperNoun || t == TypePronoun
}

// ParseType converts a category name (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown lexical type %q", s)
}

// MarshalText encodes the category by name so persisted keys stay readable.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("unknown lexical type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Tense is the time tensing of rendered output.
type Tense int

const (
	TensePresent Tense = iota
	TensePast
	TenseFuture
)

func (t Tense) String() string {
	switch t {
	case TensePresent:
		return "Present"
	case TensePast:
		return "Past"
	case TenseFuture:
		return "Future"
	default:
		return fmt.Sprintf("Tense(%d)", int(t))
	}
}

// Perspective is the grammatical person of rendered output. PerspectiveNone
// marks word forms that do not vary by person.
type Perspective int

const (
	PerspectiveNone Perspective = iota
	FirstPerson
	SecondPerson
	ThirdPerson
)

func (p Perspective) String() string {
	switch p {
	case PerspectiveNone:
		return "None"
	case FirstPerson:
		return "FirstPerson"
	case SecondPerson:
		return "SecondPerson"
	case ThirdPerson:
		return "ThirdPerson"
	default:
		return fmt.Sprintf("Perspective(%d)", int(p))
	}
}

// Normalization controls how a tree is split into sentences.
type Normalization int

const (
	// NormalizeNone renders the tree as one run of words with no sentence
	// decoration.
	NormalizeNone Normalization = iota
	// NormalizeSemantic starts a new sentence at each conjunction attached
	// to the root.
	NormalizeSemantic
	// NormalizeFull emits one clause per root modifier.
	NormalizeFull
)

func (n Normalization) String() string {
	switch n {
	case NormalizeNone:
		return "None"
	case NormalizeSemantic:
		return "Semantic"
	case NormalizeFull:
		return "Full"
	default:
		return fmt.Sprintf("Normalization(%d)", int(n))
	}
}

// SentenceType selects the closing punctuation of rendered sentences.
type SentenceType int

const (
	SentenceNone SentenceType = iota
	SentenceStatement
	SentenceQuestion
	SentenceExclamation
	SentenceExclamatoryQuestion
	SentencePartial
)

// Punctuation returns the terminal mark for the sentence type.
func (s SentenceType) Punctuation() string {
	switch s {
	case SentenceExclamation:
		return "!"
	case SentenceExclamatoryQuestion:
		return "?!"
	case SentencePartial:
		return ";"
	case SentenceQuestion:
		return "?"
	case SentenceStatement, SentenceNone:
		return "."
	default:
		return "."
	}
}
