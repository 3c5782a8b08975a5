package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/narrator/pkg/lexica"
)

// SynSet is one synonym set returned by an Oracle.
type SynSet struct {
	Category lexica.Type
	Words    []string
	Gloss    string
}

// Oracle answers synonym queries. Implementations should honour ctx.
type Oracle interface {
	SynSets(ctx context.Context, word string, categories []lexica.Type) ([]SynSet, error)
}

// DefaultHarvestTimeout bounds a single oracle call.
const DefaultHarvestTimeout = 5 * time.Second

// Pass is the visited-word set shared by every word harvested in one pass.
// It is safe for concurrent use.
type Pass struct {
	mu      sync.Mutex
	visited map[string]struct{}
}

// NewPass starts an empty pass.
func NewPass() *Pass {
	return &Pass{visited: make(map[string]struct{})}
}

// claim marks word as visited and reports whether the caller is the first.
func (p *Pass) claim(language, word string) bool {
	k := language + "\x00" + word
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.visited[k]; ok {
		return false
	}
	p.visited[k] = struct{}{}
	return true
}

// Visited reports how many distinct words the pass has processed.
func (p *Pass) Visited() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.visited)
}

// Harvester populates the synonym graph from an Oracle.
type Harvester struct {
	store  *Store
	oracle Oracle

	// Timeout bounds each oracle call. Zero means DefaultHarvestTimeout.
	Timeout time.Duration
	// Depth is how many synonym levels are expanded from the requested
	// word; 1 maps only its direct synonyms.
	Depth  int
	Logger *slog.Logger
}

// NewHarvester creates a harvester writing into store.
func NewHarvester(store *Store, oracle Oracle) *Harvester {
	return &Harvester{
		store:   store,
		oracle:  oracle,
		Timeout: DefaultHarvestTimeout,
		Depth:   1,
	}
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type harvestItem struct {
	word     string
	category lexica.Type
	depth    int
}

// Harvest maps the synonyms of one word in a fresh pass.
func (h *Harvester) Harvest(ctx context.Context, language, word string, t lexica.Type) (*Lexeme, error) {
	return h.HarvestWithin(ctx, NewPass(), language, word, t)
}

// HarvestWithin maps the synonyms of word, sharing pass with other words of
// the same harvesting run. Oracle failures are logged and end harvesting of
// the affected word only; they are not returned. Store failures are, along
// with the root lexeme, which then stays unmapped.
func (h *Harvester) HarvestWithin(ctx context.Context, pass *Pass, language, word string, t lexica.Type) (*Lexeme, error) {
	maxDepth := h.Depth
	if maxDepth < 1 {
		maxDepth = 1
	}

	var root *Lexeme
	queue := []harvestItem{{word: word, category: t}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return root, err
		}
		item := queue[0]
		queue = queue[1:]

		lex, next, err := h.harvestOne(ctx, pass, language, item)
		if item.depth == 0 {
			root = lex
			if err != nil {
				return root, err
			}
		} else if err != nil {
			if errors.Is(err, ErrInvalidWord) {
				continue
			}
			return root, err
		}

		if item.depth+1 < maxDepth {
			for _, n := range next {
				n.depth = item.depth + 1
				queue = append(queue, n)
			}
		}
	}
	return root, nil
}

func (h *Harvester) harvestOne(ctx context.Context, pass *Pass, language string, item harvestItem) (*Lexeme, []harvestItem, error) {
	if item.category.Closed() {
		if NormalizePhrase(item.word) == "" {
			return nil, nil, ErrInvalidWord
		}
		return h.store.Lookup(language, item.word, item.category), nil, nil
	}
	lex, err := h.store.CreateOrModify(language, item.word, item.category)
	if err != nil {
		return nil, nil, err
	}
	word := lex.Word()
	if lex.IsSynMapped() || !pass.claim(lex.Language(), word) || IsPhrase(word) {
		return lex, nil, nil
	}

	sets, err := h.query(ctx, word)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lex, nil, ctxErr
		}
		h.logger().Warn("synonym oracle failed", "word", word, "language", language, "error", err)
		return lex, nil, nil
	}

	var next []harvestItem
	var errs []error
	var siblings []*Lexeme
	for _, set := range sets {
		if set.Category.Closed() {
			continue
		}
		base := lex
		if set.Category != lex.Category() {
			if base, err = h.store.CreateOrModify(language, word, set.Category); err != nil {
				errs = append(errs, err)
				continue
			}
			siblings = append(siblings, base)
		}
		semantics := glossSemantics(set.Gloss, word)
		for _, member := range set.Words {
			if IsPhrase(member) {
				errs = append(errs, h.materializePhrase(language, member, set, base, semantics))
				continue
			}
			synWord := Normalize(member)
			if synWord == "" || synWord == word {
				continue
			}
			syn, err := h.store.CreateOrModify(language, synWord, set.Category)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			// Mapped synonyms were scored by their own harvest and keep it.
			if !syn.IsSynMapped() {
				syn.SetScores(synonymScores(synWord, set))
				syn.SetSemantics(semantics)
				errs = append(errs, h.store.Save(syn))
			}
			errs = append(errs, h.store.Relate(base, syn))
			next = append(next, harvestItem{word: synWord, category: set.Category})
		}
	}

	// A word is only marked mapped once all of its writes landed, so a
	// partial failure is retried by a later pass.
	if err := errors.Join(errs...); err != nil {
		return lex, next, err
	}
	for _, base := range append(siblings, lex) {
		base.setSynMapped(true)
		if err := h.store.Save(base); err != nil {
			base.setSynMapped(false)
			errs = append(errs, err)
		}
	}
	return lex, next, errors.Join(errs...)
}

func synonymScores(word string, set SynSet) Scores {
	return Scores{
		Severity: BaselineSeverity,
		Elegance: 3 * Syllables(word),
		Quality:  len(set.Words),
	}
}

// materializePhrase creates a phrase entity only when every constituent
// word is already known.
func (h *Harvester) materializePhrase(language, member string, set SynSet, base *Lexeme, semantics []string) error {
	parts := PhraseParts(member)
	if len(parts) < 2 {
		return nil
	}
	for _, p := range parts {
		if !h.store.Known(language, p) {
			return nil
		}
	}
	phrase, created, err := h.store.createPhrase(language, parts, set.Category)
	if err != nil {
		return err
	}
	if created {
		phrase.SetScores(synonymScores(strings.Join(parts, ""), set))
		phrase.SetSemantics(semantics)
		phrase.setSynMapped(true)
	}
	return h.store.Relate(base, phrase)
}

type oracleResult struct {
	sets []SynSet
	err  error
}

// query calls the oracle under the harvest timeout. The call runs in its own
// goroutine so an oracle that ignores ctx can not stall the pass.
func (h *Harvester) query(ctx context.Context, word string) ([]SynSet, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultHarvestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan oracleResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- oracleResult{err: fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		sets, err := h.oracle.SynSets(ctx, word, lexica.OpenTypes)
		done <- oracleResult{sets: sets, err: err}
	}()

	select {
	case res := <-done:
		return res.sets, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
