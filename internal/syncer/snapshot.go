package syncer

import (
	"context"
	"fmt"

	"anchor.fit/linkweaver/internal/db"
)

const (
	fullSnapshotBatchSize = 1000
	urlSnapshotBatchSize  = 2000
)

// readFullSnapshot pages through every corpus row with the columns the diff
// needs, keyed by URL. A failed or incomplete read aborts the run before any
// write: categorization against a partial snapshot would mass-delete pages.
func (e *Engine) readFullSnapshot(ctx context.Context) (map[string]db.PageSnapshot, error) {
	total, err := e.store.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count corpus pages: %w", err)
	}

	existing := make(map[string]db.PageSnapshot, total)
	for offset := 0; int64(offset) < total; offset += fullSnapshotBatchSize {
		batch, err := e.store.ListPageSnapshots(ctx, fullSnapshotBatchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("snapshot read aborted at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, snap := range batch {
			existing[snap.URL] = snap
		}
	}

	if int64(len(existing)) < total {
		return nil, fmt.Errorf("partial snapshot: read %d of %d pages", len(existing), total)
	}
	return existing, nil
}

// readURLSnapshot is the quick-sync fast path: URL column only, larger pages,
// roughly an order of magnitude fewer bytes than the full read.
func (e *Engine) readURLSnapshot(ctx context.Context) (map[string]struct{}, error) {
	total, err := e.store.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count corpus pages: %w", err)
	}

	existing := make(map[string]struct{}, total)
	for offset := 0; int64(offset) < total; offset += urlSnapshotBatchSize {
		batch, err := e.store.ListPageURLs(ctx, urlSnapshotBatchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("url snapshot read aborted at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, url := range batch {
			existing[url] = struct{}{}
		}
	}

	if int64(len(existing)) < total {
		return nil, fmt.Errorf("partial url snapshot: read %d of %d pages", len(existing), total)
	}
	return existing, nil
}
