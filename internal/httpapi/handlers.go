package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/match"
	"anchor.fit/linkweaver/internal/pagefilter"
	"anchor.fit/linkweaver/internal/syncer"
)

const maxSnapshotBodyBytes = 64 << 20

type matchRequest struct {
	Anchors   []match.AnchorCandidate `json:"anchors"`
	Threshold *float64                `json:"threshold,omitempty"`
	Limit     *int                    `json:"limit,omitempty"`
}

type matchResponse struct {
	Results []match.CandidateResult `json:"results"`
}

type syncHistoryEntry struct {
	SyncID         int64     `json:"sync_id"`
	ProjectID      string    `json:"project_id"`
	ProjectName    string    `json:"project_name,omitempty"`
	CrawlID        string    `json:"crawl_id"`
	CrawlName      string    `json:"crawl_name,omitempty"`
	Mode           string    `json:"mode"`
	Status         string    `json:"status"`
	SyncedAt       time.Time `json:"synced_at"`
	PagesAdded     int       `json:"pages_added"`
	PagesUpdated   int       `json:"pages_updated"`
	PagesUnchanged int       `json:"pages_unchanged"`
	PagesRemoved   int       `json:"pages_removed"`
	PagesFailed    int       `json:"pages_failed"`
	DurationMS     int64     `json:"duration_ms"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
}

type syncResponse struct {
	SyncID      int64             `json:"sync_id"`
	Mode        string            `json:"mode"`
	Added       int               `json:"added"`
	Updated     int               `json:"updated"`
	Unchanged   int               `json:"unchanged"`
	Removed     int               `json:"removed"`
	Failed      int               `json:"failed"`
	DurationMS  int64             `json:"duration_ms"`
	FilterStats *pagefilter.Stats `json:"filter_stats,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()

	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return internalError(c, "database unreachable")
	}
	return success(c, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(c echo.Context) error {
	ctx, cancel := contextWithTimeout(c, 15*time.Second)
	defer cancel()

	stats, err := s.pool.GetCorpusStats(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("corpus stats query failed")
		return internalError(c, "failed to load corpus stats")
	}

	return success(c, map[string]any{
		"pages":             stats.Pages,
		"embedded_pages":    stats.EmbeddedPages,
		"pending_embedding": stats.PendingEmbedding,
		"last_synced_at":    stats.LastSyncedAt,
	})
}

func (s *Server) handleSyncHistory(c echo.Context) error {
	limit, err := parseLimitParam(c.QueryParam("limit"), defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		return failBadRequest(c, err.Error())
	}

	ctx, cancel := contextWithTimeout(c, 15*time.Second)
	defer cancel()

	entries, err := s.pool.ListSyncHistory(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("sync history query failed")
		return internalError(c, "failed to load sync history")
	}

	out := make([]syncHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, syncHistoryEntry{
			SyncID:         entry.SyncID,
			ProjectID:      entry.ProjectID,
			ProjectName:    entry.ProjectName,
			CrawlID:        entry.CrawlID,
			CrawlName:      entry.CrawlName,
			Mode:           entry.Mode,
			Status:         entry.Status,
			SyncedAt:       entry.SyncedAt,
			PagesAdded:     entry.PagesAdded,
			PagesUpdated:   entry.PagesUpdated,
			PagesUnchanged: entry.PagesUnchanged,
			PagesRemoved:   entry.PagesRemoved,
			PagesFailed:    entry.PagesFailed,
			DurationMS:     entry.DurationMS,
			ErrorMessage:   entry.ErrorMessage,
		})
	}
	return success(c, map[string]any{"entries": out})
}

func (s *Server) handleMatch(c echo.Context) error {
	var req matchRequest
	if err := c.Bind(&req); err != nil {
		return failBadRequest(c, "invalid match request body")
	}
	if len(req.Anchors) == 0 {
		return failBadRequest(c, "anchors must not be empty")
	}

	opts := match.Options{
		Threshold:      s.cfg.MatchThreshold,
		Limit:          s.cfg.MatchLimit,
		Timeout:        s.cfg.MatchTimeout,
		PacingInterval: s.cfg.MatchPacingInterval,
	}
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			return failBadRequest(c, "threshold must be within [0, 1]")
		}
		opts.Threshold = *req.Threshold
	}
	if req.Limit != nil {
		if *req.Limit < 1 {
			return failBadRequest(c, "limit must be >= 1")
		}
		opts.Limit = *req.Limit
	}

	engine := match.NewEngine(s.embedder, s.pool, s.logger, opts)
	results, err := engine.MatchBatch(c.Request().Context(), req.Anchors, nil)
	if err != nil {
		s.logger.Error().Err(err).Int("completed", len(results)).Msg("match batch aborted")
		// Candidates matched before the abort still travel with the failure.
		return fail(c, http.StatusInternalServerError, "match batch aborted", matchResponse{Results: results})
	}

	return success(c, matchResponse{Results: results})
}

func (s *Server) handleSync(c echo.Context) error {
	mode, err := syncer.ParseMode(modeOrDefault(c.QueryParam("mode")))
	if err != nil {
		return failBadRequest(c, err.Error())
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSnapshotBodyBytes))
	if err != nil {
		return failBadRequest(c, "failed to read request body")
	}

	snapshot, err := crawl.ValidateSnapshotPayload(json.RawMessage(body))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid crawl snapshot", map[string]string{
			"detail": err.Error(),
		})
	}

	filter := pagefilter.New(s.logger, s.cfg.SitePathExclusionsList())
	engine := syncer.NewEngine(s.pool, s.logger)

	result, runErr := engine.Run(c.Request().Context(), snapshot, mode, filter)
	resp := syncResponse{
		SyncID:      result.SyncID,
		Mode:        string(result.Mode),
		Added:       result.Counts.Added,
		Updated:     result.Counts.Updated,
		Unchanged:   result.Counts.Unchanged,
		Removed:     result.Counts.Removed,
		Failed:      result.Counts.Failed,
		DurationMS:  result.Duration.Milliseconds(),
		FilterStats: result.FilterStats,
	}
	if runErr != nil {
		s.logger.Error().Err(runErr).Int64("sync_id", result.SyncID).Msg("sync run failed")
		// Partial counts still travel with the failure.
		return fail(c, http.StatusInternalServerError, runErr.Error(), resp)
	}

	return success(c, resp)
}

func modeOrDefault(raw string) string {
	if raw == "" {
		return string(syncer.ModeFull)
	}
	return raw
}

func contextWithTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}
