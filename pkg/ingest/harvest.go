package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/japaniel/narrator/pkg/lexicon"
)

// HarvestReport summarises one harvesting pass.
type HarvestReport struct {
	Requested int
	Mapped    int
	Failed    int
	// Visited counts the distinct words claimed by the pass.
	Visited  int
	Duration time.Duration
}

// HarvestAll maps every key on a worker pool with one shared visited set, so
// a synonym reached from two requested words is queried once. Per-word
// failures are joined into the returned error; the pass itself continues.
func HarvestAll(ctx context.Context, h *lexicon.Harvester, keys []lexicon.Key, workers int, logger *slog.Logger) (HarvestReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	report := HarvestReport{Requested: len(keys)}
	if len(keys) == 0 {
		return report, nil
	}

	pass := lexicon.NewPass()
	wp := NewWorkerPool(workers, workers*2)
	wp.Start(ctx)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, key := range keys {
		err := wp.SubmitCtx(ctx, func(ctx context.Context) error {
			lex, err := h.HarvestWithin(ctx, pass, key.Language, key.Word, key.Category)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				errs = append(errs, fmt.Errorf("harvest %s: %w", key, err))
				return err
			}
			if lex != nil && lex.IsSynMapped() {
				report.Mapped++
			}
			return nil
		})
		if err != nil {
			break
		}
	}
	wp.Close()

	report.Visited = pass.Visited()
	report.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	logger.Info("harvest pass finished",
		"requested", report.Requested,
		"mapped", report.Mapped,
		"failed", report.Failed,
		"visited", report.Visited,
		"duration", report.Duration)
	return report, errors.Join(errs...)
}
