package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/japaniel/narrator/pkg/db"
	"github.com/japaniel/narrator/pkg/lexicon"
	"github.com/japaniel/narrator/pkg/segment"
)

// Seeder turns a segmented corpus into lexemes and per-source usage counts.
type Seeder struct {
	DB       *sql.DB
	Store    *lexicon.Store
	Language string

	BatchSize int
	Workers   int
	// Logger is used for informational messages (e.g. resume status). nil means slog.Default().
	Logger *slog.Logger
	// OnProgress is called periodically with the number of processed sentences and total sentences.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool
}

// NewSeeder creates a Seeder writing lexemes for language into store and
// usage rows into conn.
func NewSeeder(conn *sql.DB, store *lexicon.Store, language string) *Seeder {
	return &Seeder{
		DB:        conn,
		Store:     store,
		Language:  language,
		BatchSize: 50,
		Workers:   4,
	}
}

func (s *Seeder) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// usage is one lexeme's occurrences within a sentence.
type usage struct {
	Key   lexicon.Key
	Count int
}

// seededSentence holds the result of processing a sentence before it is written.
type seededSentence struct {
	Index    int
	Sentence string
	Usages   []usage
	Error    error
}

// Seed processes sentences in parallel and records them in order through a
// BatchWriter. Progress is checkpointed per sentence, so a later call for
// the same source resumes after the last committed sentence. It returns the
// number of token occurrences recorded.
func (s *Seeder) Seed(parent context.Context, sourceID int64, sentences []segment.Sentence) (int, error) {
	if err := parent.Err(); err != nil {
		return 0, err
	}
	if s.Store == nil {
		return 0, errors.New("seed: no lexicon store")
	}

	lastProcessed, err := db.GetSourceProgress(s.DB, sourceID)
	if err != nil {
		return 0, fmt.Errorf("seed: read progress of source %d: %w", sourceID, err)
	}
	total := len(sentences)
	startIdx := lastProcessed + 1
	if startIdx >= total {
		return 0, nil
	}
	if startIdx > 0 {
		s.logger().Info("resuming corpus seed", "source", sourceID, "from", startIdx, "total", total)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var wp Pool
	if s.PoolFactory != nil {
		wp = s.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	bw := NewBatchWriter(s.DB, batchSize, 100*time.Millisecond)
	bw.Logger = s.Logger

	var recorded atomic.Int64
	resultCh := make(chan seededSentence, workers*2)
	doneCh := make(chan error, 1)

	wp.Start(ctx)

	// Consumer: reorder results and hand them to the batch writer by index.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]seededSentence)
		next := startIdx
		for res := range resultCh {
			if res.Error != nil {
				cancel()
				doneCh <- res.Error
				return
			}
			buffer[res.Index] = res
			for {
				item, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				if err := bw.Submit(s.writeSentence(sourceID, item, &recorded)); err != nil {
					cancel()
					doneCh <- err
					return
				}
				if s.OnProgress != nil && (next+1)%batchSize == 0 {
					s.OnProgress(next+1, total)
				}
				next++
			}
		}
		if s.OnProgress != nil && next == total {
			s.OnProgress(total, total)
		}
		doneCh <- nil
	}()

	var producerErr error
	for i := startIdx; i < total; i++ {
		if ctx.Err() != nil {
			break
		}
		idx, sent := i, sentences[i]
		job := func(ctx context.Context) error {
			res := s.processSentence(idx, sent)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return res.Error
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || err == ErrPoolClosed {
				break
			}
			producerErr = fmt.Errorf("seed: submit sentence %d: %w", idx, err)
			break
		}
	}

	// Every job has sent or given up once the pool is closed.
	wp.Close()
	close(resultCh)

	consumerErr := <-doneCh
	closeErr := bw.Close()

	switch {
	case producerErr != nil:
		return int(recorded.Load()), producerErr
	case consumerErr != nil:
		return int(recorded.Load()), consumerErr
	case closeErr != nil:
		return int(recorded.Load()), closeErr
	}
	if err := parent.Err(); err != nil {
		return int(recorded.Load()), err
	}
	batches, writes := bw.Stats()
	s.logger().Info("corpus seeded", "source", sourceID, "sentences", total-startIdx, "occurrences", recorded.Load(), "batches", batches, "writes", writes)
	return int(recorded.Load()), nil
}

// processSentence resolves every open-class token to a lexeme and counts
// occurrences per lexeme, in first-seen order.
func (s *Seeder) processSentence(index int, sentence segment.Sentence) seededSentence {
	counts := make(map[lexicon.Key]int)
	var order []lexicon.Key
	for _, tok := range sentence.Tokens {
		if tok.Type.Closed() {
			continue
		}
		lex, err := s.Store.CreateOrModify(s.Language, tok.Lemma(), tok.Type)
		if errors.Is(err, lexicon.ErrInvalidWord) {
			continue
		}
		if err != nil {
			return seededSentence{Index: index, Error: fmt.Errorf("seed: sentence %d: %w", index, err)}
		}
		key := lex.Key()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	usages := make([]usage, 0, len(order))
	for _, key := range order {
		usages = append(usages, usage{Key: key, Count: counts[key]})
	}
	return seededSentence{Index: index, Sentence: sentence.Text, Usages: usages}
}

// writeSentence records a sentence's usages and checkpoints progress in the
// batch transaction.
func (s *Seeder) writeSentence(sourceID int64, item seededSentence, recorded *atomic.Int64) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, u := range item.Usages {
			id, err := db.EnsureLexemeID(tx, u.Key.Language, u.Key.Category.String(), u.Key.Word)
			if err != nil {
				return fmt.Errorf("failed to persist lexeme %s: %w", u.Key, err)
			}
			if err := db.RecordUsage(tx, id, sourceID, item.Sentence, u.Count); err != nil {
				return fmt.Errorf("failed to record usage of %s: %w", u.Key, err)
			}
			recorded.Add(int64(u.Count))
		}
		if err := db.UpdateSourceProgress(tx, sourceID, item.Index); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	}
}
