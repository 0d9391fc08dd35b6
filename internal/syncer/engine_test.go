package syncer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/db"
	"anchor.fit/linkweaver/internal/pagefilter"
)

type finalizeCall struct {
	syncID int64
	status string
	counts db.SyncCounts
	runErr error
}

// fakeStore satisfies CorpusStore in memory and records every write so tests
// can assert what reached the database layer.
type fakeStore struct {
	snapshots []db.PageSnapshot

	// listCap truncates snapshot reads below what CountPages reports,
	// simulating rows vanishing mid-read.
	listCap int

	countErr     error
	snapshotErr  error
	insertErr    error
	updateErr    error
	overwriteErr error
	deleteErr    error
	startErr     error
	finalizeErr  error

	inserted  [][]db.PageWrite
	updated   [][]db.PageUpdate
	overwrote [][]db.PageWrite
	deleted   [][]string
	starts    []db.SyncRunStart
	finalizes []finalizeCall
}

func (f *fakeStore) CountPages(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.snapshots)), nil
}

func (f *fakeStore) ListPageSnapshots(ctx context.Context, limit, offset int) ([]db.PageSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	visible := len(f.snapshots)
	if f.listCap > 0 {
		visible = min(visible, f.listCap)
	}
	if offset >= visible {
		return nil, nil
	}
	end := min(offset+limit, visible)
	return f.snapshots[offset:end], nil
}

func (f *fakeStore) ListPageURLs(ctx context.Context, limit, offset int) ([]string, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	if offset >= len(f.snapshots) {
		return nil, nil
	}
	end := min(offset+limit, len(f.snapshots))
	urls := make([]string, 0, end-offset)
	for _, snap := range f.snapshots[offset:end] {
		urls = append(urls, snap.URL)
	}
	return urls, nil
}

func (f *fakeStore) InsertPages(ctx context.Context, pages []db.PageWrite, now time.Time) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, pages)
	return nil
}

func (f *fakeStore) UpdatePages(ctx context.Context, updates []db.PageUpdate, now time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, updates)
	return nil
}

func (f *fakeStore) OverwritePages(ctx context.Context, pages []db.PageWrite, now time.Time) error {
	if f.overwriteErr != nil {
		return f.overwriteErr
	}
	f.overwrote = append(f.overwrote, pages)
	return nil
}

func (f *fakeStore) DeletePagesByURL(ctx context.Context, urls []string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, urls)
	return int64(len(urls)), nil
}

func (f *fakeStore) InsertSyncRun(ctx context.Context, start db.SyncRunStart, now time.Time) (int64, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.starts = append(f.starts, start)
	return int64(len(f.starts)), nil
}

func (f *fakeStore) FinalizeSyncRun(ctx context.Context, syncID int64, status string, counts db.SyncCounts, durationMS int64, runErr error) error {
	f.finalizes = append(f.finalizes, finalizeCall{
		syncID: syncID,
		status: status,
		counts: counts,
		runErr: runErr,
	})
	return f.finalizeErr
}

func (f *fakeStore) writeCalls() int {
	return len(f.inserted) + len(f.updated) + len(f.overwrote) + len(f.deleted)
}

func testSnapshot(urls ...string) *crawl.Snapshot {
	pages := make([]crawl.RawPage, 0, len(urls))
	for _, url := range urls {
		pages = append(pages, crawl.RawPage{
			URL:        url,
			Title:      "Préparer le sol du potager",
			StatusCode: "200",
		})
	}
	return &crawl.Snapshot{
		ProjectID: "proj-1",
		CrawlID:   "crawl-42",
		Pages:     pages,
	}
}

func testEngine(store CorpusStore) (*Engine, *pagefilter.Filter) {
	return NewEngine(store, zerolog.Nop()), pagefilter.New(zerolog.Nop(), nil)
}

func TestRunAbsorbsFailedInsertBatch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		snapshots: []db.PageSnapshot{{PageID: 1, URL: "https://www.example.com/ancien.html"}},
		insertErr: errors.New("unique constraint violated"),
	}
	engine, filter := testEngine(store)

	snapshot := testSnapshot(
		"https://www.example.com/nouveau-1.html",
		"https://www.example.com/nouveau-2.html",
	)

	result, err := engine.Run(context.Background(), snapshot, ModeFull, filter)
	if err != nil {
		t.Fatalf("a failed batch must not fail the run: %v", err)
	}
	if result.Counts.Failed != 2 {
		t.Fatalf("expected 2 failed pages, got %d", result.Counts.Failed)
	}
	if result.Counts.Added != 0 {
		t.Fatalf("failed inserts must not count as added, got %d", result.Counts.Added)
	}
	// The stale delete still runs after the insert batch fell over.
	if result.Counts.Removed != 1 || len(store.deleted) != 1 {
		t.Fatalf("expected the delete batch to proceed: %+v", result.Counts)
	}
	if len(store.finalizes) != 1 {
		t.Fatalf("expected exactly one finalize, got %d", len(store.finalizes))
	}
	final := store.finalizes[0]
	if final.status != "completed" {
		t.Fatalf("absorbed batch failures still complete the run, got %q", final.status)
	}
	if final.counts.Failed != 2 {
		t.Fatalf("finalized counts must carry the failures, got %+v", final.counts)
	}
}

func TestRunAbortsBeforeWritesOnPartialSnapshotRead(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		snapshots:   []db.PageSnapshot{{PageID: 1, URL: "https://www.example.com/ancien.html"}},
		snapshotErr: errors.New("connection reset"),
	}
	engine, filter := testEngine(store)

	result, err := engine.Run(context.Background(), testSnapshot("https://www.example.com/nouveau.html"), ModeFull, filter)
	if err == nil {
		t.Fatalf("expected the run to fail on a snapshot read error")
	}
	if store.writeCalls() != 0 {
		t.Fatalf("no corpus write may happen after a failed snapshot read, got %d", store.writeCalls())
	}
	if len(store.finalizes) != 1 {
		t.Fatalf("expected exactly one finalize, got %d", len(store.finalizes))
	}
	final := store.finalizes[0]
	if final.status != "failed" {
		t.Fatalf("expected status failed, got %q", final.status)
	}
	if final.runErr == nil {
		t.Fatalf("finalize must carry the run error")
	}
	if final.counts != (db.SyncCounts{}) {
		t.Fatalf("aborted run must finalize zero counts, got %+v", final.counts)
	}
	if result.SyncID != final.syncID {
		t.Fatalf("result sync id %d does not match finalized %d", result.SyncID, final.syncID)
	}
}

func TestRunDetectsTruncatedSnapshotRead(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		snapshots: []db.PageSnapshot{
			{PageID: 1, URL: "https://www.example.com/a.html"},
			{PageID: 2, URL: "https://www.example.com/b.html"},
		},
		listCap: 1,
	}
	engine, filter := testEngine(store)

	_, err := engine.Run(context.Background(), testSnapshot("https://www.example.com/a.html"), ModeFull, filter)
	if err == nil || !strings.Contains(err.Error(), "partial snapshot") {
		t.Fatalf("expected a partial snapshot error, got %v", err)
	}
	if store.writeCalls() != 0 {
		t.Fatalf("a truncated snapshot read must not be followed by writes, got %d", store.writeCalls())
	}
	if len(store.finalizes) != 1 || store.finalizes[0].status != "failed" {
		t.Fatalf("expected one finalize with status failed, got %+v", store.finalizes)
	}
}

func TestRunRecordsHistoryStart(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	engine, filter := testEngine(store)

	if _, err := engine.Run(context.Background(), testSnapshot(), ModeQuick, filter); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.starts) != 1 {
		t.Fatalf("expected one history start row, got %d", len(store.starts))
	}
	start := store.starts[0]
	if start.ProjectID != "proj-1" || start.CrawlID != "crawl-42" || start.Mode != "quick" {
		t.Fatalf("unexpected start row: %+v", start)
	}
}

func TestRunFailsWhenHistoryStartFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{startErr: errors.New("permission denied")}
	engine, filter := testEngine(store)

	_, err := engine.Run(context.Background(), testSnapshot("https://www.example.com/p.html"), ModeFull, filter)
	if err == nil {
		t.Fatalf("expected failure when the history row cannot be created")
	}
	if store.writeCalls() != 0 {
		t.Fatalf("no write may happen without a history row")
	}
}

func TestRunSurfacesFinalizeFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{finalizeErr: errors.New("row already finalized")}
	engine, filter := testEngine(store)

	_, err := engine.Run(context.Background(), testSnapshot("https://www.example.com/p.html"), ModeFull, filter)
	if err == nil || !strings.Contains(err.Error(), "already finalized") {
		t.Fatalf("a clean run with a failed finalize must surface the error, got %v", err)
	}
}

func TestRunQuickContentOverwrites(t *testing.T) {
	t.Parallel()

	url := "https://www.example.com/connu.html"
	store := &fakeStore{snapshots: []db.PageSnapshot{{PageID: 1, URL: url}}}
	engine, filter := testEngine(store)

	result, err := engine.Run(context.Background(), testSnapshot(url), ModeQuickContent, filter)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Counts.Updated != 1 || len(store.overwrote) != 1 {
		t.Fatalf("expected one overwrite batch, got %+v", result.Counts)
	}
	if len(store.updated) != 0 {
		t.Fatalf("quick-content must never take the diff update path")
	}
}
