package ingest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/japaniel/narrator/pkg/db"
	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
	"github.com/japaniel/narrator/pkg/segment"
	_ "github.com/mattn/go-sqlite3"
)

func setupDB(t *testing.T) *sql.DB {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)
	if err := db.InitDB(conn); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	return conn
}

func catSentences(n int) []segment.Sentence {
	sentences := make([]segment.Sentence, n)
	for i := range sentences {
		sentences[i] = segment.Sentence{
			Text: "the cat sleeps",
			Tokens: []segment.Token{
				{Surface: "the", Type: lexica.TypeArticle},
				{Surface: "cat", Type: lexica.TypeNoun},
			},
		}
	}
	return sentences
}

func TestSeedRecordsUsage(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	sourceID, err := db.CreateOrGetSource(conn, "text", "Cats", "", "", "file://cats.txt", "")
	if err != nil {
		t.Fatal(err)
	}

	sentences := []segment.Sentence{
		{Text: "The cat sees a cat.", Tokens: []segment.Token{
			{Surface: "The", Type: lexica.TypeArticle},
			{Surface: "cat", Type: lexica.TypeNoun},
			{Surface: "sees", BaseForm: "see", Type: lexica.TypeVerb},
			{Surface: "a", Type: lexica.TypeArticle},
			{Surface: "cat", Type: lexica.TypeNoun},
		}},
		{Text: "Bob runs quickly.", Tokens: []segment.Token{
			{Surface: "Bob", Type: lexica.TypeProperNoun},
			{Surface: "runs", BaseForm: "run", Type: lexica.TypeVerb},
			{Surface: "quickly", Type: lexica.TypeAdverb},
			{Surface: "42", Type: lexica.TypeNoun},
		}},
	}

	store := lexicon.NewStore(nil)
	seeder := NewSeeder(conn, store, "en")
	seeder.BatchSize = 1

	count, err := seeder.Seed(context.Background(), sourceID, sentences)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	// cat x2, see, run, quickly
	if count != 5 {
		t.Fatalf("expected 5 occurrences, got %d", count)
	}
	for _, w := range []struct {
		word string
		t    lexica.Type
	}{{"cat", lexica.TypeNoun}, {"see", lexica.TypeVerb}, {"run", lexica.TypeVerb}, {"quickly", lexica.TypeAdverb}} {
		if store.Lookup("en", w.word, w.t) == nil {
			t.Errorf("expected lexeme %q in store", w.word)
		}
	}
	if store.Lookup("en", "bob", lexica.TypeProperNoun) != nil {
		t.Errorf("closed-class tokens must not be seeded")
	}

	usages, err := db.UsageBySource(conn, sourceID)
	if err != nil {
		t.Fatalf("usage query: %v", err)
	}
	if len(usages) != 4 {
		t.Fatalf("expected 4 usage rows, got %d", len(usages))
	}
	if usages[0].Word != "cat" || usages[0].OccurrenceCount != 2 {
		t.Fatalf("expected cat x2 first, got %+v", usages[0])
	}
	if progress, _ := db.GetSourceProgress(conn, sourceID); progress != 1 {
		t.Fatalf("expected progress 1, got %d", progress)
	}

	// Seeding again is a no-op: everything is checkpointed.
	count, err = seeder.Seed(context.Background(), sourceID, sentences)
	if err != nil || count != 0 {
		t.Fatalf("expected no-op reseed, got %d, %v", count, err)
	}
}

func TestSeedResume(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	sourceID, err := db.CreateOrGetSource(conn, "test", "Title", "Author", "Site", "http://test", "")
	if err != nil {
		t.Fatal(err)
	}

	// Sentences 0..4 are already done.
	if err := db.UpdateSourceProgress(conn, sourceID, 4); err != nil {
		t.Fatal(err)
	}

	seeder := NewSeeder(conn, lexicon.NewStore(nil), "en")
	seeder.BatchSize = 2 // Verify batching doesn't interfere

	var last int
	seeder.OnProgress = func(current, total int) { last = current }

	count, err := seeder.Seed(context.Background(), sourceID, catSentences(10))
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 recorded occurrences, got %d", count)
	}
	if last != 10 {
		t.Errorf("Expected final progress callback at 10, got %d", last)
	}
	if progress, _ := db.GetSourceProgress(conn, sourceID); progress != 9 {
		t.Errorf("Expected progress 9, got %d", progress)
	}
}

func TestSeedContextCancel(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	sourceID, _ := db.CreateOrGetSource(conn, "test", "Title", "", "", "http://test2", "")

	seeder := NewSeeder(conn, lexicon.NewStore(nil), "en")
	seeder.BatchSize = 10

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := seeder.Seed(ctx, sourceID, catSentences(100))
	if count != 0 {
		t.Errorf("Expected 0 recorded occurrences with cancelled context, got %d", count)
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestSeedHandlesSubmitError(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	sourceID, err := db.CreateOrGetSource(conn, "test", "SubmitError", "", "", "http://submit", "")
	if err != nil {
		t.Fatal(err)
	}

	seeder := NewSeeder(conn, lexicon.NewStore(nil), "en")
	seeder.PoolFactory = func(workers, queue int) Pool { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := seeder.Seed(ctx, sourceID, catSentences(10)); err == nil {
		t.Fatalf("expected submit error, got nil")
	}
}

func TestSeedUnknownSourceFails(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	seeder := NewSeeder(conn, lexicon.NewStore(nil), "en")
	if _, err := seeder.Seed(context.Background(), 999, catSentences(1)); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}
