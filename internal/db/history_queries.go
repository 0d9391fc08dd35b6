package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxSyncErrorLength = 4000

// SyncRunStart identifies the crawl a sync run reconciles against.
type SyncRunStart struct {
	ProjectID   string
	ProjectName string
	CrawlID     string
	CrawlName   string
	Mode        string
}

// SyncCounts is the per-run outcome breakdown.
type SyncCounts struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
	Failed    int
}

// InsertSyncRun writes the zero-valued history row at sync start. A run that
// crashes mid-way stays visible as status=running.
func (p *Pool) InsertSyncRun(ctx context.Context, start SyncRunStart, now time.Time) (int64, error) {
	const q = `
INSERT INTO seo.sync_history (
	project_id, project_name, crawl_id, crawl_name, mode, status, synced_at
)
VALUES ($1, $2, $3, $4, $5, 'running', $6)
RETURNING sync_id
`

	var syncID int64
	if err := p.QueryRow(ctx, q,
		strings.TrimSpace(start.ProjectID),
		strings.TrimSpace(start.ProjectName),
		strings.TrimSpace(start.CrawlID),
		strings.TrimSpace(start.CrawlName),
		strings.TrimSpace(start.Mode),
		now,
	).Scan(&syncID); err != nil {
		return 0, fmt.Errorf("insert sync run: %w", err)
	}
	return syncID, nil
}

// FinalizeSyncRun records final counts and duration exactly once. The
// status=running guard makes a second finalize attempt an error instead of a
// silent overwrite.
func (p *Pool) FinalizeSyncRun(ctx context.Context, syncID int64, status string, counts SyncCounts, durationMS int64, runErr error) error {
	var errorMessage *string
	if runErr != nil {
		message := runErr.Error()
		if len(message) > maxSyncErrorLength {
			message = message[:maxSyncErrorLength]
		}
		errorMessage = &message
	}

	const q = `
UPDATE seo.sync_history SET
	status = $2,
	pages_added = $3,
	pages_updated = $4,
	pages_unchanged = $5,
	pages_removed = $6,
	pages_failed = $7,
	duration_ms = $8,
	error_message = $9
WHERE sync_id = $1
  AND status = 'running'
`

	affected, err := p.Exec(ctx, q,
		syncID,
		status,
		counts.Added,
		counts.Updated,
		counts.Unchanged,
		counts.Removed,
		counts.Failed,
		durationMS,
		errorMessage,
	)
	if err != nil {
		return fmt.Errorf("finalize sync run sync_id=%d: %w", syncID, err)
	}
	if affected == 0 {
		return fmt.Errorf("sync run sync_id=%d is not running (already finalized?)", syncID)
	}
	return nil
}

func (p *Pool) ListSyncHistory(ctx context.Context, limit int) ([]SyncHistoryEntry, error) {
	const q = `
SELECT
	sync_id, project_id, project_name, crawl_id, crawl_name, mode, status,
	synced_at, pages_added, pages_updated, pages_unchanged, pages_removed,
	pages_failed, duration_ms, error_message
FROM seo.sync_history
ORDER BY synced_at DESC, sync_id DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select sync history: %w", err)
	}
	defer rows.Close()

	entries := make([]SyncHistoryEntry, 0, limit)
	for rows.Next() {
		var entry SyncHistoryEntry
		if err := rows.Scan(
			&entry.SyncID,
			&entry.ProjectID,
			&entry.ProjectName,
			&entry.CrawlID,
			&entry.CrawlName,
			&entry.Mode,
			&entry.Status,
			&entry.SyncedAt,
			&entry.PagesAdded,
			&entry.PagesUpdated,
			&entry.PagesUnchanged,
			&entry.PagesRemoved,
			&entry.PagesFailed,
			&entry.DurationMS,
			&entry.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan sync history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync history: %w", err)
	}
	return entries, nil
}
