package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/db"
	"anchor.fit/linkweaver/internal/globaltime"
	"anchor.fit/linkweaver/internal/pagefilter"
)

type Mode string

const (
	ModeFull         Mode = "full"
	ModeQuick        Mode = "quick"
	ModeQuickContent Mode = "quick-content"
)

const (
	insertBatchSize = 500
	updateBatchSize = 200
	deleteBatchSize = 200
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.TrimSpace(strings.ToLower(raw))) {
	case ModeFull:
		return ModeFull, nil
	case ModeQuick:
		return ModeQuick, nil
	case ModeQuickContent:
		return ModeQuickContent, nil
	default:
		return "", fmt.Errorf("mode must be full, quick or quick-content")
	}
}

// CorpusStore is the slice of the database pool the sync engine writes
// through.
type CorpusStore interface {
	CountPages(ctx context.Context) (int64, error)
	ListPageSnapshots(ctx context.Context, limit, offset int) ([]db.PageSnapshot, error)
	ListPageURLs(ctx context.Context, limit, offset int) ([]string, error)
	InsertPages(ctx context.Context, pages []db.PageWrite, now time.Time) error
	UpdatePages(ctx context.Context, updates []db.PageUpdate, now time.Time) error
	OverwritePages(ctx context.Context, pages []db.PageWrite, now time.Time) error
	DeletePagesByURL(ctx context.Context, urls []string) (int64, error)
	InsertSyncRun(ctx context.Context, start db.SyncRunStart, now time.Time) (int64, error)
	FinalizeSyncRun(ctx context.Context, syncID int64, status string, counts db.SyncCounts, durationMS int64, runErr error) error
}

// Engine reconciles a crawl snapshot against the persisted corpus. Runs are
// sequential by design; two concurrent runs against the same corpus are not
// safe and callers must not schedule them.
type Engine struct {
	store  CorpusStore
	logger zerolog.Logger
}

type Result struct {
	SyncID      int64
	Mode        Mode
	Counts      db.SyncCounts
	FilterStats *pagefilter.Stats
	Duration    time.Duration
}

func NewEngine(store CorpusStore, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// Run executes one sync. The history row is inserted zero-valued before any
// work and finalized exactly once with the accumulated counts, whether the
// run completes or aborts.
func (e *Engine) Run(ctx context.Context, snapshot *crawl.Snapshot, mode Mode, filter *pagefilter.Filter) (Result, error) {
	if e == nil || e.store == nil {
		return Result{}, fmt.Errorf("sync engine is not initialized")
	}
	if snapshot == nil {
		return Result{}, fmt.Errorf("crawl snapshot is nil")
	}
	if filter == nil {
		return Result{}, fmt.Errorf("content filter is nil")
	}

	start := globaltime.UTC()
	syncID, err := e.store.InsertSyncRun(ctx, db.SyncRunStart{
		ProjectID:   snapshot.ProjectID,
		ProjectName: snapshot.ProjectName,
		CrawlID:     snapshot.CrawlID,
		CrawlName:   snapshot.CrawlName,
		Mode:        string(mode),
	}, start)
	if err != nil {
		return Result{}, fmt.Errorf("record sync start: %w", err)
	}

	result := Result{SyncID: syncID, Mode: mode, FilterStats: filter.Stats()}

	counts, runErr := e.execute(ctx, snapshot, mode, filter)
	result.Counts = counts
	result.Duration = globaltime.UTC().Sub(start)

	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	if finalizeErr := e.store.FinalizeSyncRun(ctx, syncID, status, counts, result.Duration.Milliseconds(), runErr); finalizeErr != nil {
		e.logger.Error().Err(finalizeErr).Int64("sync_id", syncID).Msg("sync history finalize failed")
		if runErr == nil {
			runErr = finalizeErr
		}
	}

	e.logger.Info().
		Int64("sync_id", syncID).
		Str("mode", string(mode)).
		Int("added", counts.Added).
		Int("updated", counts.Updated).
		Int("unchanged", counts.Unchanged).
		Int("removed", counts.Removed).
		Int("failed", counts.Failed).
		Dur("duration", result.Duration).
		Str("status", status).
		Msg("sync run finished")

	return result, runErr
}

func (e *Engine) execute(ctx context.Context, snapshot *crawl.Snapshot, mode Mode, filter *pagefilter.Filter) (db.SyncCounts, error) {
	incoming := e.filterAndNormalize(snapshot.Pages, filter)

	var plan Plan
	switch mode {
	case ModeFull:
		existing, err := e.readFullSnapshot(ctx)
		if err != nil {
			return db.SyncCounts{}, err
		}
		plan = BuildFullPlan(incoming, existing)
	case ModeQuick, ModeQuickContent:
		existing, err := e.readURLSnapshot(ctx)
		if err != nil {
			return db.SyncCounts{}, err
		}
		plan = BuildQuickPlan(incoming, existing, mode == ModeQuickContent)
	default:
		return db.SyncCounts{}, fmt.Errorf("unsupported sync mode %q", mode)
	}

	return e.applyPlan(ctx, plan), nil
}

func (e *Engine) filterAndNormalize(pages []crawl.RawPage, filter *pagefilter.Filter) []crawl.ProcessedPage {
	processed := make([]crawl.ProcessedPage, 0, len(pages))
	for _, raw := range pages {
		if rejection := filter.Check(raw); rejection != nil {
			e.logger.Debug().
				Str("url", raw.URL).
				Str("category", string(rejection.Category)).
				Str("reason", rejection.Reason).
				Msg("page filtered out")
			continue
		}
		processed = append(processed, pagefilter.Normalize(raw))
	}
	return processed
}

// applyPlan executes the batched writes in insert, update, delete order. Each
// batch is independently recovered: a failure adds the batch size to the
// failed count and the run moves on. There is no compensating rollback of
// batches that already succeeded.
func (e *Engine) applyPlan(ctx context.Context, plan Plan) db.SyncCounts {
	counts := db.SyncCounts{Unchanged: plan.Unchanged}
	now := globaltime.UTC()

	for _, batch := range chunk(plan.Inserts, insertBatchSize) {
		if err := e.store.InsertPages(ctx, batch, now); err != nil {
			counts.Failed += len(batch)
			e.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("insert batch failed")
			continue
		}
		counts.Added += len(batch)
	}

	for _, batch := range chunk(plan.Updates, updateBatchSize) {
		if err := e.store.UpdatePages(ctx, batch, now); err != nil {
			counts.Failed += len(batch)
			e.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("update batch failed")
			continue
		}
		counts.Updated += len(batch)
	}

	for _, batch := range chunk(plan.Overwrites, updateBatchSize) {
		if err := e.store.OverwritePages(ctx, batch, now); err != nil {
			counts.Failed += len(batch)
			e.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("overwrite batch failed")
			continue
		}
		counts.Updated += len(batch)
	}

	for _, batch := range chunk(plan.StaleURLs, deleteBatchSize) {
		removed, err := e.store.DeletePagesByURL(ctx, batch)
		if err != nil {
			counts.Failed += len(batch)
			e.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("delete batch failed")
			continue
		}
		counts.Removed += int(removed)
	}

	return counts
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
