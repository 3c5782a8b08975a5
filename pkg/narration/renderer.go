// Package narration renders lexica trees to text for one observer at a
// time, choosing synonyms from a lexicon.Store.
package narration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
)

// ErrNoDictata is returned by strict renderers when an open-class node has
// no backing lexeme.
var ErrNoDictata = errors.New("narration: no dictionary entry")

// Option configures a Renderer.
type Option func(*Renderer)

// WithDecider sets the verbosity gate. The default is Threshold{Cutoff: 50}.
func WithDecider(d Decider) Option {
	return func(r *Renderer) { r.decider = d }
}

// WithStrict makes open-class words without a lexeme an error instead of
// rendering them literally.
func WithStrict(strict bool) Option {
	return func(r *Renderer) { r.strict = strict }
}

// WithLogger sets the renderer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// Renderer turns trees into text. It only reads from the store, never
// blocks on I/O and is safe for concurrent use when its Decider is.
type Renderer struct {
	store   *lexicon.Store
	decider Decider
	strict  bool
	logger  *slog.Logger
}

// New creates a renderer reading synonyms from store.
func New(store *lexicon.Store, opts ...Option) *Renderer {
	r := &Renderer{
		store:   store,
		decider: Threshold{Cutoff: lexica.DefaultVerbosity},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Describe renders n using the context's normalization.
func (r *Renderer) Describe(n *lexica.Node, ctx lexica.Context) (string, error) {
	return r.Unpack(n, ctx, ctx.Normalization)
}

// Unpack renders n like Describe but with an explicit normalization.
func (r *Renderer) Unpack(n *lexica.Node, ctx lexica.Context, norm lexica.Normalization) (string, error) {
	c := composer{word: func(node *lexica.Node) (string, error) {
		return r.surface(node, ctx)
	}}
	return c.text(n, norm, ctx.SentenceType)
}

// Mutate returns a copy of n with every phrase replaced by the word Describe
// would choose for it. n itself is not modified.
func (r *Renderer) Mutate(n *lexica.Node, ctx lexica.Context) (*lexica.Node, error) {
	if n == nil {
		return nil, nil
	}
	out := n.Clone()
	var err error
	out.Walk(func(node *lexica.Node, _ int) bool {
		var w string
		if w, err = r.surface(node, ctx); err != nil {
			return false
		}
		if w != "" {
			node.Phrase = w
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetDictata returns the lexeme backing n in language, or nil.
func (r *Renderer) GetDictata(n *lexica.Node, language string) *lexicon.Lexeme {
	if n == nil {
		return nil
	}
	return r.store.Lookup(language, n.Phrase, n.Type)
}

// GenerateDictata returns the lexeme backing n in language, creating it if
// needed. Repeated calls return the same instance.
func (r *Renderer) GenerateDictata(n *lexica.Node, language string) (*lexicon.Lexeme, error) {
	if n == nil {
		return nil, lexicon.ErrInvalidWord
	}
	return r.store.CreateOrModify(language, n.Phrase, n.Type)
}

// surface resolves the word printed for a single node.
func (r *Renderer) surface(n *lexica.Node, ctx lexica.Context) (string, error) {
	if n.IsBlank() {
		return "", nil
	}
	lex := r.store.Lookup(ctx.Language, n.Phrase, n.Type)
	if n.Type.Closed() {
		return closedSurface(n, lex, ctx), nil
	}
	if lex == nil {
		if r.strict {
			return "", fmt.Errorf("%w: %s %q (%s)", ErrNoDictata, n.Type, n.Phrase, ctx.Language)
		}
		r.logger.Debug("no lexeme, rendering literally", "phrase", n.Phrase, "type", n.Type.String(), "language", ctx.Language)
		return n.Phrase, nil
	}

	chosen := lex
	if r.decider.Substitute(ctx.ClampedVerbosity()) {
		chosen = r.best(lex, ctx)
	}
	if f, ok := chosen.FormFor(ctx.Tense, ctx.Perspective); ok && f.Word != "" {
		return f.Word, nil
	}
	return chosen.Word(), nil
}

// closedSurface applies tense and perspective forms to closed-class words
// such as pronouns. They never take synonyms, and without a dedicated form
// the phrase is kept as written so names keep their casing.
func closedSurface(n *lexica.Node, lex *lexicon.Lexeme, ctx lexica.Context) string {
	if lex == nil {
		return n.Phrase
	}
	if f, ok := lex.FormFor(ctx.Tense, ctx.Perspective); ok && f.Word != "" && f.Word != lex.Word() {
		return f.Word
	}
	return n.Phrase
}

// best picks among lex and its same-category synonyms the one closest to
// lex's own scores shifted by the context deltas.
func (r *Renderer) best(lex *lexicon.Lexeme, ctx lexica.Context) *lexicon.Lexeme {
	target := lex.Primary().Scores.Add(ctx.Severity, ctx.Elegance, ctx.Quality)
	candidates := []*lexicon.Lexeme{lex}
	for _, key := range lex.Related() {
		if key.Category != lex.Category() {
			continue
		}
		if syn := r.store.Get(key); syn != nil {
			candidates = append(candidates, syn)
		}
	}
	if best := Best(candidates, target); best != nil {
		return best
	}
	return lex
}
