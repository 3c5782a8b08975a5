package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
)

type mapOracle struct {
	sets  map[string][]lexicon.SynSet
	calls atomic.Int32
}

func (m *mapOracle) SynSets(_ context.Context, word string, _ []lexica.Type) ([]lexicon.SynSet, error) {
	m.calls.Add(1)
	if word == "broken" {
		return nil, errors.New("oracle down")
	}
	return m.sets[word], nil
}

func TestHarvestAllSharesVisitedSet(t *testing.T) {
	store := lexicon.NewStore(lexicon.NewMemPersister())
	oracle := &mapOracle{sets: map[string][]lexicon.SynSet{
		"cat":    {{Category: lexica.TypeNoun, Words: []string{"cat", "feline"}}},
		"kitten": {{Category: lexica.TypeNoun, Words: []string{"kitten", "feline"}}},
		"feline": {{Category: lexica.TypeNoun, Words: []string{"feline", "cat"}}},
	}}
	h := lexicon.NewHarvester(store, oracle)
	h.Depth = 2

	keys := []lexicon.Key{
		{Language: "en", Category: lexica.TypeNoun, Word: "cat"},
		{Language: "en", Category: lexica.TypeNoun, Word: "kitten"},
	}
	report, err := HarvestAll(context.Background(), h, keys, 2, nil)
	if err != nil {
		t.Fatalf("HarvestAll failed: %v", err)
	}
	if report.Requested != 2 || report.Mapped != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// cat, kitten and feline are each queried once.
	if report.Visited != 3 {
		t.Fatalf("expected 3 visited words, got %d", report.Visited)
	}
	if got := oracle.calls.Load(); got != 3 {
		t.Fatalf("expected 3 oracle calls, got %d", got)
	}
	if keys := store.Unmapped("en"); len(keys) != 0 {
		t.Fatalf("expected every lexeme mapped, still unmapped: %v", keys)
	}
}

func TestHarvestAllReportsFailures(t *testing.T) {
	store := lexicon.NewStore(nil)
	h := lexicon.NewHarvester(store, &mapOracle{})

	keys := []lexicon.Key{
		{Language: "en", Category: lexica.TypeNoun, Word: "broken"},
		{Language: "en", Category: lexica.TypeNoun, Word: "123"},
	}
	report, err := HarvestAll(context.Background(), h, keys, 1, nil)
	if !errors.Is(err, lexicon.ErrInvalidWord) {
		t.Fatalf("expected ErrInvalidWord in joined error, got %v", err)
	}
	// An oracle failure is logged, not returned; the word stays unmapped.
	if report.Failed != 1 || report.Mapped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.Lookup("en", "broken", lexica.TypeNoun) == nil {
		t.Fatalf("expected the failed word to exist in the store")
	}
}

func TestHarvestAllCancelled(t *testing.T) {
	h := lexicon.NewHarvester(lexicon.NewStore(nil), &mapOracle{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keys := []lexicon.Key{{Language: "en", Category: lexica.TypeNoun, Word: "cat"}}
	_, err := HarvestAll(ctx, h, keys, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHarvestAllEmpty(t *testing.T) {
	h := lexicon.NewHarvester(lexicon.NewStore(nil), &mapOracle{})
	report, err := HarvestAll(context.Background(), h, nil, 4, nil)
	if err != nil || report.Requested != 0 {
		t.Fatalf("unexpected result: %+v, %v", report, err)
	}
}
