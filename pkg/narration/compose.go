package narration

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/narrator/pkg/lexica"
)

// slot is where a modifier lands relative to the word it modifies.
type slot int

const (
	slotAfter slot = iota
	slotBefore
	slotContinue
)

type placement func(head, mod lexica.Type) slot

func always(s slot) placement {
	return func(lexica.Type, lexica.Type) slot { return s }
}

func descriptive(head, mod lexica.Type) slot {
	switch mod {
	case lexica.TypeAdjective, lexica.TypeArticle, lexica.TypeNoun:
		if head.Nominal() {
			return slotBefore
		}
	case lexica.TypeAdverb:
		if head == lexica.TypeAdjective {
			return slotBefore
		}
	}
	return slotAfter
}

func possessive(_, mod lexica.Type) slot {
	if mod == lexica.TypePronoun {
		return slotBefore
	}
	return slotAfter
}

// placements covers every Role. Roles missing from the table render after
// the head.
var placements = map[lexica.Role]placement{
	lexica.RoleNone:           always(slotAfter),
	lexica.RoleSubject:        always(slotBefore),
	lexica.RoleVerb:           always(slotAfter),
	lexica.RoleDirectObject:   always(slotAfter),
	lexica.RoleIndirectObject: always(slotAfter),
	lexica.RoleDescriptive:    descriptive,
	lexica.RolePossessive:     possessive,
	lexica.RoleInterjection:   always(slotBefore),
	lexica.RoleConjunction:    always(slotContinue),
}

func placeOf(head, mod *lexica.Node) slot {
	if p, ok := placements[mod.Role]; ok {
		return p(head.Type, mod.Type)
	}
	return slotAfter
}

// preRank orders modifiers sharing a role: "the old black cat".
func preRank(t lexica.Type) int {
	switch t {
	case lexica.TypeArticle:
		return 0
	case lexica.TypePronoun:
		return 1
	case lexica.TypeAdverb:
		return 2
	case lexica.TypeAdjective:
		return 3
	case lexica.TypeNoun, lexica.TypeProperNoun:
		return 4
	default:
		return 5
	}
}

// ordered sorts modifiers into canonical render order: role ordinal, then
// category rank, then insertion order.
func ordered(mods []*lexica.Node) []*lexica.Node {
	out := make([]*lexica.Node, len(mods))
	copy(out, mods)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return preRank(out[i].Type) < preRank(out[j].Type)
	})
	return out
}

// wordFunc resolves the surface word of a single node.
type wordFunc func(n *lexica.Node) (string, error)

type composer struct {
	word wordFunc
}

func literal(n *lexica.Node) (string, error) {
	return strings.TrimSpace(n.Phrase), nil
}

// words renders head together with mods as a flat run of words.
func (c composer) words(head *lexica.Node, mods []*lexica.Node, depth int) ([]string, error) {
	w, err := c.word(head)
	if err != nil {
		return nil, err
	}
	var before, after, cont []*lexica.Node
	if depth < lexica.MaxDepth {
		for _, m := range ordered(mods) {
			switch placeOf(head, m) {
			case slotBefore:
				before = append(before, m)
			case slotContinue:
				cont = append(cont, m)
			default:
				after = append(after, m)
			}
		}
	}

	var out []string
	for _, m := range before {
		part, err := c.words(m, m.Modifiers(), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	if w != "" {
		out = append(out, w)
	}
	for _, m := range after {
		part, err := c.words(m, m.Modifiers(), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	for _, m := range cont {
		part, err := c.continuation(m, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// continuation renders a conjunction followed by the clauses it joins.
func (c composer) continuation(conj *lexica.Node, depth int) ([]string, error) {
	var out []string
	w, err := c.word(conj)
	if err != nil {
		return nil, err
	}
	if w != "" {
		out = append(out, w)
	}
	part, err := c.joined(conj, depth)
	if err != nil {
		return nil, err
	}
	return append(out, part...), nil
}

// joined renders the modifiers of conj in order, without conj itself.
func (c composer) joined(conj *lexica.Node, depth int) ([]string, error) {
	if depth >= lexica.MaxDepth {
		return nil, nil
	}
	var out []string
	for _, m := range ordered(conj.Modifiers()) {
		part, err := c.words(m, m.Modifiers(), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

// text renders a whole tree under the given normalization.
func (c composer) text(root *lexica.Node, norm lexica.Normalization, st lexica.SentenceType) (string, error) {
	if root == nil {
		return "", nil
	}
	switch norm {
	case lexica.NormalizeSemantic, lexica.NormalizeFull:
		sentences, err := c.sentences(root, norm)
		if err != nil {
			return "", err
		}
		return joinSentences(sentences, st.Punctuation()), nil
	default:
		words, err := c.words(root, root.Modifiers(), 0)
		if err != nil {
			return "", err
		}
		return strings.Join(words, " "), nil
	}
}

// sentences splits the root into sentences. Conjunctions attached to the
// root always open a new sentence; under NormalizeFull each remaining root
// modifier also gets a clause of its own, repeating the subject.
func (c composer) sentences(root *lexica.Node, norm lexica.Normalization) ([][]string, error) {
	var main, conjs []*lexica.Node
	for _, m := range ordered(root.Modifiers()) {
		if m.Role == lexica.RoleConjunction {
			conjs = append(conjs, m)
		} else {
			main = append(main, m)
		}
	}

	var out [][]string
	if norm == lexica.NormalizeFull {
		var subjects, clauses []*lexica.Node
		for _, m := range main {
			if m.Role == lexica.RoleSubject {
				subjects = append(subjects, m)
			} else {
				clauses = append(clauses, m)
			}
		}
		if len(clauses) == 0 {
			w, err := c.words(root, subjects, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		for _, m := range clauses {
			mods := append(append([]*lexica.Node{}, subjects...), m)
			w, err := c.words(root, mods, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
	} else {
		w, err := c.words(root, main, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}

	for _, conj := range conjs {
		w, err := c.joined(conj, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func joinSentences(sentences [][]string, punct string) string {
	var parts []string
	for _, words := range sentences {
		if len(words) == 0 {
			continue
		}
		parts = append(parts, capitalize(strings.Join(words, " "))+punct)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Plain renders a tree from its literal phrases, with no dictionary lookups.
// It never fails and is the fallback when a tailored render does.
func Plain(n *lexica.Node, norm lexica.Normalization, st lexica.SentenceType) string {
	out, _ := composer{word: literal}.text(n, norm, st)
	return out
}
