package lexicon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle answers from a fixed table and counts calls.
type fakeOracle struct {
	sets  map[string][]SynSet
	fail  map[string]error
	calls atomic.Int32
}

func (f *fakeOracle) SynSets(_ context.Context, word string, _ []lexica.Type) ([]SynSet, error) {
	f.calls.Add(1)
	if err := f.fail[word]; err != nil {
		return nil, err
	}
	return f.sets[word], nil
}

func TestHarvestCreatesScoredSynonyms(t *testing.T) {
	store := NewStore(NewMemPersister())
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"cat": {{Category: lexica.TypeNoun, Words: []string{"cat", "feline", "true_cat"}, Gloss: "feline mammal usually having thick soft fur; domestic"}},
	}}
	h := NewHarvester(store, oracle)

	cat, err := h.Harvest(context.Background(), "en", "Cat", lexica.TypeNoun)
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.True(t, cat.IsSynMapped())

	feline := store.Lookup("en", "feline", lexica.TypeNoun)
	require.NotNil(t, feline)
	assert.False(t, feline.IsSynMapped())
	assert.Equal(t, Scores{Severity: BaselineSeverity, Elegance: 6, Quality: 3}, feline.Primary().Scores)
	assert.Equal(t, []string{"feline", "mammal", "usually", "having", "thick", "soft", "fur"}, feline.Primary().Semantics)

	assert.Contains(t, cat.Related(), feline.Key())
	assert.Contains(t, feline.Related(), cat.Key())

	// "true" is not a known lexeme, so the phrase is skipped.
	assert.Nil(t, store.Lookup("en", "true cat", lexica.TypeNoun))
}

func TestHarvestSkipsMappedLexemes(t *testing.T) {
	store := NewStore(nil)
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"cat": {{Category: lexica.TypeNoun, Words: []string{"feline"}}},
	}}
	h := NewHarvester(store, oracle)

	_, err := h.Harvest(context.Background(), "en", "cat", lexica.TypeNoun)
	require.NoError(t, err)
	_, err = h.Harvest(context.Background(), "en", "cat", lexica.TypeNoun)
	require.NoError(t, err)
	assert.Equal(t, int32(1), oracle.calls.Load())
}

func TestHarvestClosedClassProducesNothing(t *testing.T) {
	for _, typ := range []lexica.Type{
		lexica.TypePronoun, lexica.TypeArticle, lexica.TypeConjunction,
		lexica.TypeProperNoun, lexica.TypeNone,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			store := NewStore(NewMemPersister())
			oracle := &fakeOracle{sets: map[string][]SynSet{
				"the": {{Category: lexica.TypeNoun, Words: []string{"thee", "thy"}}},
			}}
			h := NewHarvester(store, oracle)

			_, err := h.Harvest(context.Background(), "en", "the", typ)
			require.NoError(t, err)
			assert.Zero(t, store.Len())
			assert.Zero(t, oracle.calls.Load())
		})
	}
}

func TestHarvestClosedClassLeavesExistingForms(t *testing.T) {
	store := NewStore(nil)
	they, err := store.CreateOrModify("en", "they", lexica.TypePronoun)
	require.NoError(t, err)
	before := they.Forms()

	h := NewHarvester(store, &fakeOracle{})
	got, err := h.Harvest(context.Background(), "en", "they", lexica.TypePronoun)
	require.NoError(t, err)
	assert.Same(t, they, got)
	assert.Equal(t, before, they.Forms())
	assert.Equal(t, 1, store.Len())
}

func TestHarvestPhraseRequiresKnownParts(t *testing.T) {
	store := NewStore(nil)
	_, err := store.CreateOrModify("en", "ice", lexica.TypeNoun)
	require.NoError(t, err)

	oracle := &fakeOracle{sets: map[string][]SynSet{
		"dessert": {{Category: lexica.TypeNoun, Words: []string{"ice_cream", "sweet"}}},
	}}
	h := NewHarvester(store, oracle)
	_, err = h.Harvest(context.Background(), "en", "dessert", lexica.TypeNoun)
	require.NoError(t, err)

	assert.Nil(t, store.Lookup("en", "ice cream", lexica.TypeNoun))
	assert.Nil(t, store.Lookup("en", "cream", lexica.TypeNoun))
	assert.NotNil(t, store.Lookup("en", "sweet", lexica.TypeNoun))
}

func TestHarvestPhraseWithKnownParts(t *testing.T) {
	store := NewStore(nil)
	for _, w := range []string{"ice", "cream"} {
		_, err := store.CreateOrModify("en", w, lexica.TypeNoun)
		require.NoError(t, err)
	}
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"dessert": {{Category: lexica.TypeNoun, Words: []string{"ice_cream"}}},
	}}
	h := NewHarvester(store, oracle)
	dessert, err := h.Harvest(context.Background(), "en", "dessert", lexica.TypeNoun)
	require.NoError(t, err)

	phrase := store.Lookup("en", "ice cream", lexica.TypeNoun)
	require.NotNil(t, phrase)
	assert.Contains(t, dessert.Related(), phrase.Key())
}

func TestHarvestOracleFailureIsIsolated(t *testing.T) {
	store := NewStore(nil)
	oracle := &fakeOracle{
		sets: map[string][]SynSet{"run": {{Category: lexica.TypeVerb, Words: []string{"sprint"}}}},
		fail: map[string]error{"walk": errors.New("oracle unavailable")},
	}
	h := NewHarvester(store, oracle)
	pass := NewPass()

	walk, err := h.HarvestWithin(context.Background(), pass, "en", "walk", lexica.TypeVerb)
	require.NoError(t, err)
	require.NotNil(t, walk)
	assert.False(t, walk.IsSynMapped(), "failed words stay eligible for a later pass")

	run, err := h.HarvestWithin(context.Background(), pass, "en", "run", lexica.TypeVerb)
	require.NoError(t, err)
	assert.True(t, run.IsSynMapped())
	assert.NotNil(t, store.Lookup("en", "sprint", lexica.TypeVerb))
}

type slowOracle struct{ delay time.Duration }

func (s slowOracle) SynSets(context.Context, string, []lexica.Type) ([]SynSet, error) {
	time.Sleep(s.delay)
	return []SynSet{{Category: lexica.TypeNoun, Words: []string{"late"}}}, nil
}

func TestHarvestTimesOutSlowOracle(t *testing.T) {
	store := NewStore(nil)
	h := NewHarvester(store, slowOracle{delay: 500 * time.Millisecond})
	h.Timeout = 20 * time.Millisecond

	start := time.Now()
	lex, err := h.Harvest(context.Background(), "en", "clock", lexica.TypeNoun)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.False(t, lex.IsSynMapped())
	assert.Nil(t, store.Lookup("en", "late", lexica.TypeNoun))
}

func TestHarvestVisitedSetBoundsExpansion(t *testing.T) {
	store := NewStore(nil)
	// a and b name each other; with a deep expansion the visited set must
	// stop the cycle.
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"alpha": {{Category: lexica.TypeNoun, Words: []string{"beta"}}},
		"beta":  {{Category: lexica.TypeNoun, Words: []string{"alpha", "gamma"}}},
		"gamma": {{Category: lexica.TypeNoun, Words: []string{"alpha"}}},
	}}
	h := NewHarvester(store, oracle)
	h.Depth = 10

	pass := NewPass()
	_, err := h.HarvestWithin(context.Background(), pass, "en", "alpha", lexica.TypeNoun)
	require.NoError(t, err)

	assert.Equal(t, int32(3), oracle.calls.Load())
	assert.Equal(t, 3, pass.Visited())
	for _, w := range []string{"alpha", "beta", "gamma"} {
		assert.True(t, store.Lookup("en", w, lexica.TypeNoun).IsSynMapped(), w)
	}
}

func TestHarvestDepthOneDoesNotExpand(t *testing.T) {
	store := NewStore(nil)
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"alpha": {{Category: lexica.TypeNoun, Words: []string{"beta"}}},
		"beta":  {{Category: lexica.TypeNoun, Words: []string{"gamma"}}},
	}}
	h := NewHarvester(store, oracle)

	_, err := h.Harvest(context.Background(), "en", "alpha", lexica.TypeNoun)
	require.NoError(t, err)
	assert.Equal(t, int32(1), oracle.calls.Load())
	assert.Nil(t, store.Lookup("en", "gamma", lexica.TypeNoun))
}

func TestHarvestOtherCategoriesCreateSiblingLexemes(t *testing.T) {
	store := NewStore(nil)
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"run": {
			{Category: lexica.TypeVerb, Words: []string{"sprint"}},
			{Category: lexica.TypeNoun, Words: []string{"dash"}},
			{Category: lexica.TypeNone, Words: []string{"ignored"}},
		},
	}}
	h := NewHarvester(store, oracle)
	_, err := h.Harvest(context.Background(), "en", "run", lexica.TypeVerb)
	require.NoError(t, err)

	noun := store.Lookup("en", "run", lexica.TypeNoun)
	require.NotNil(t, noun)
	assert.True(t, noun.IsSynMapped())
	assert.Contains(t, noun.Related(), Key{Language: "en", Category: lexica.TypeNoun, Word: "dash"})
	assert.Nil(t, store.Lookup("en", "ignored", lexica.TypeNone))
}

func TestHarvestRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHarvester(NewStore(nil), &fakeOracle{})
	_, err := h.Harvest(ctx, "en", "cat", lexica.TypeNoun)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarvestInvalidWord(t *testing.T) {
	h := NewHarvester(NewStore(nil), &fakeOracle{})
	_, err := h.Harvest(context.Background(), "en", "123", lexica.TypeNoun)
	assert.ErrorIs(t, err, ErrInvalidWord)
}

func TestHarvestRescoresUnmappedSynonyms(t *testing.T) {
	store := NewStore(nil)
	// Seeding creates lexemes with default scores before any harvest.
	feline, err := store.CreateOrModify("en", "feline", lexica.TypeNoun)
	require.NoError(t, err)
	require.Equal(t, 1, feline.Primary().Scores.Quality)

	// A mapped synonym keeps the scores it already has.
	tom, err := store.CreateOrModify("en", "tom", lexica.TypeNoun)
	require.NoError(t, err)
	curated := Scores{Severity: 5, Elegance: 1, Quality: 9}
	tom.SetScores(curated)
	tom.setSynMapped(true)

	oracle := &fakeOracle{sets: map[string][]SynSet{
		"cat": {{Category: lexica.TypeNoun, Words: []string{"cat", "feline", "kitty", "tom"}, Gloss: "small pet"}},
	}}
	_, err = NewHarvester(store, oracle).Harvest(context.Background(), "en", "cat", lexica.TypeNoun)
	require.NoError(t, err)

	assert.Equal(t, Scores{Severity: BaselineSeverity, Elegance: 6, Quality: 4}, feline.Primary().Scores)
	assert.Equal(t, []string{"small", "pet"}, feline.Primary().Semantics)
	kitty := store.Lookup("en", "kitty", lexica.TypeNoun)
	require.NotNil(t, kitty)
	assert.Equal(t, 4, kitty.Primary().Scores.Quality)
	assert.Equal(t, curated, tom.Primary().Scores)
}

// flakyPersister fails upserts of one word until healed.
type flakyPersister struct {
	*MemPersister
	word   string
	broken atomic.Bool
}

func (f *flakyPersister) UpsertLexeme(rec Record) error {
	if f.broken.Load() && rec.Key.Word == f.word {
		return errors.New("disk full")
	}
	return f.MemPersister.UpsertLexeme(rec)
}

func TestHarvestPartialFailureIsRetried(t *testing.T) {
	p := &flakyPersister{MemPersister: NewMemPersister(), word: "kitty"}
	p.broken.Store(true)
	store := NewStore(p)
	oracle := &fakeOracle{sets: map[string][]SynSet{
		"cat": {{Category: lexica.TypeNoun, Words: []string{"feline", "kitty"}}},
	}}
	h := NewHarvester(store, oracle)

	cat, err := h.Harvest(context.Background(), "en", "cat", lexica.TypeNoun)
	require.Error(t, err)
	require.NotNil(t, cat, "the root lexeme is returned with the error")
	assert.False(t, cat.IsSynMapped())
	assert.Contains(t, store.Unmapped("en"), cat.Key())

	p.broken.Store(false)
	cat, err = h.Harvest(context.Background(), "en", "cat", lexica.TypeNoun)
	require.NoError(t, err)
	assert.True(t, cat.IsSynMapped())
	assert.Equal(t, int32(2), oracle.calls.Load())
	require.NotNil(t, store.Lookup("en", "kitty", lexica.TypeNoun))
	rec, err := p.GetLexeme(cat.Key())
	require.NoError(t, err)
	assert.True(t, rec.SynMapped)
}
