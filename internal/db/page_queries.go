package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PageSnapshot carries the columns the full-sync diff compares. Embeddings are
// deliberately not loaded; updates either clear the column or leave it alone.
type PageSnapshot struct {
	PageID           int64
	URL              string
	Title            *string
	MetaDescription  *string
	H1               *string
	WordCount        *int
	Category         string
	Depth            *int
	InrankDecimal    *float64
	InternalOutlinks *int
	NbInlinks        *int
}

// PageWrite is the set of writable, non-embedding page columns.
type PageWrite struct {
	URL              string
	Title            *string
	MetaDescription  *string
	H1               *string
	WordCount        *int
	Category         string
	Depth            *int
	InrankDecimal    *float64
	InternalOutlinks *int
	NbInlinks        *int
}

// PageUpdate rewrites one existing row. InvalidateEmbedding clears the stored
// vector when the embeddable content changed; otherwise the vector column is
// left untouched and carried forward.
type PageUpdate struct {
	PageID              int64
	Write               PageWrite
	InvalidateEmbedding bool
}

type PageMatch struct {
	PageID          int64
	URL             string
	Title           *string
	MetaDescription *string
	H1              *string
	Similarity      float64
}

type PendingEmbeddingPage struct {
	PageID          int64
	Title           *string
	H1              *string
	MetaDescription *string
}

type CorpusStats struct {
	Pages            int64
	EmbeddedPages    int64
	PendingEmbedding int64
	LastSyncedAt     *time.Time
}

func (p *Pool) CountPages(ctx context.Context) (int64, error) {
	var count int64
	if err := p.QueryRow(ctx, `SELECT COUNT(*) FROM seo.pages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

const pageSnapshotColumns = `
	p.page_id,
	p.url,
	p.title,
	p.meta_description,
	p.h1,
	p.word_count,
	p.category,
	p.depth,
	p.inrank_decimal,
	p.internal_outlinks,
	p.nb_inlinks
`

func (p *Pool) ListPageSnapshots(ctx context.Context, limit, offset int) ([]PageSnapshot, error) {
	q := `
SELECT ` + pageSnapshotColumns + `
FROM seo.pages p
ORDER BY p.page_id
LIMIT $1 OFFSET $2
`

	rows, err := p.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select page snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]PageSnapshot, 0, limit)
	for rows.Next() {
		var snap PageSnapshot
		if err := rows.Scan(
			&snap.PageID,
			&snap.URL,
			&snap.Title,
			&snap.MetaDescription,
			&snap.H1,
			&snap.WordCount,
			&snap.Category,
			&snap.Depth,
			&snap.InrankDecimal,
			&snap.InternalOutlinks,
			&snap.NbInlinks,
		); err != nil {
			return nil, fmt.Errorf("scan page snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page snapshots: %w", err)
	}
	return snapshots, nil
}

func (p *Pool) ListPageURLs(ctx context.Context, limit, offset int) ([]string, error) {
	const q = `
SELECT p.url
FROM seo.pages p
ORDER BY p.page_id
LIMIT $1 OFFSET $2
`

	rows, err := p.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select page urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0, limit)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan page url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page urls: %w", err)
	}
	return urls, nil
}

// InsertPages writes one multi-row INSERT for the batch. New rows always start
// with a NULL embedding.
func (p *Pool) InsertPages(ctx context.Context, pages []PageWrite, now time.Time) error {
	if len(pages) == 0 {
		return nil
	}

	var builder strings.Builder
	builder.WriteString(`
INSERT INTO seo.pages (
	url, title, meta_description, h1, word_count, category,
	depth, inrank_decimal, internal_outlinks, nb_inlinks, embedding, updated_at
) VALUES `)

	args := make([]any, 0, len(pages)*11)
	for i, page := range pages {
		if i > 0 {
			builder.WriteString(", ")
		}
		base := i * 11
		builder.WriteString(fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, NULL, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args,
			page.URL,
			page.Title,
			page.MetaDescription,
			page.H1,
			page.WordCount,
			page.Category,
			page.Depth,
			page.InrankDecimal,
			page.InternalOutlinks,
			page.NbInlinks,
			now,
		)
	}

	if _, err := p.Exec(ctx, builder.String(), args...); err != nil {
		return fmt.Errorf("insert %d pages: %w", len(pages), err)
	}
	return nil
}

// UpdatePages rewrites the non-embedding columns of every row in the batch
// inside one transaction, clearing the embedding only where flagged.
func (p *Pool) UpdatePages(ctx context.Context, updates []PageUpdate, now time.Time) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := p.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin update batch: %w", err)
	}

	const keepEmbedding = `
UPDATE seo.pages SET
	title = $2, meta_description = $3, h1 = $4, word_count = $5, category = $6,
	depth = $7, inrank_decimal = $8, internal_outlinks = $9, nb_inlinks = $10,
	updated_at = $11
WHERE page_id = $1
`
	const clearEmbedding = `
UPDATE seo.pages SET
	title = $2, meta_description = $3, h1 = $4, word_count = $5, category = $6,
	depth = $7, inrank_decimal = $8, internal_outlinks = $9, nb_inlinks = $10,
	updated_at = $11, embedding = NULL
WHERE page_id = $1
`

	for _, update := range updates {
		q := keepEmbedding
		if update.InvalidateEmbedding {
			q = clearEmbedding
		}
		w := update.Write
		if _, err := tx.Exec(ctx, q,
			update.PageID,
			w.Title,
			w.MetaDescription,
			w.H1,
			w.WordCount,
			w.Category,
			w.Depth,
			w.InrankDecimal,
			w.InternalOutlinks,
			w.NbInlinks,
			now,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("update page_id=%d: %w", update.PageID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update batch: %w", err)
	}
	return nil
}

// OverwritePages blindly rewrites non-embedding columns by URL. Quick content
// sync uses this; the stored embedding is always preserved.
func (p *Pool) OverwritePages(ctx context.Context, pages []PageWrite, now time.Time) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := p.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin overwrite batch: %w", err)
	}

	const q = `
UPDATE seo.pages SET
	title = $2, meta_description = $3, h1 = $4, word_count = $5, category = $6,
	depth = $7, inrank_decimal = $8, internal_outlinks = $9, nb_inlinks = $10,
	updated_at = $11
WHERE url = $1
`

	for _, page := range pages {
		if _, err := tx.Exec(ctx, q,
			page.URL,
			page.Title,
			page.MetaDescription,
			page.H1,
			page.WordCount,
			page.Category,
			page.Depth,
			page.InrankDecimal,
			page.InternalOutlinks,
			page.NbInlinks,
			now,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("overwrite page url=%s: %w", page.URL, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit overwrite batch: %w", err)
	}
	return nil
}

func (p *Pool) DeletePagesByURL(ctx context.Context, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(urls))
	args := make([]any, 0, len(urls))
	for i, url := range urls {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, url)
	}

	q := fmt.Sprintf(`DELETE FROM seo.pages WHERE url IN (%s)`, strings.Join(placeholders, ", "))
	deleted, err := p.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %d pages: %w", len(urls), err)
	}
	return deleted, nil
}

// MatchPages calls the seo.match_pages similarity function. The query
// embedding travels as a pgvector literal and results arrive ordered by
// similarity descending.
func (p *Pool) MatchPages(ctx context.Context, vectorLiteral string, threshold float64, limit int) ([]PageMatch, error) {
	const q = `
SELECT page_id, url, title, meta_description, h1, similarity
FROM seo.match_pages($1::vector, $2, $3)
`

	rows, err := p.Query(ctx, q, vectorLiteral, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("call match_pages: %w", err)
	}
	defer rows.Close()

	matches := make([]PageMatch, 0, limit)
	for rows.Next() {
		var match PageMatch
		if err := rows.Scan(
			&match.PageID,
			&match.URL,
			&match.Title,
			&match.MetaDescription,
			&match.H1,
			&match.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}
	return matches, nil
}

func (p *Pool) ListPagesPendingEmbedding(ctx context.Context, limit int) ([]PendingEmbeddingPage, error) {
	const q = `
SELECT p.page_id, p.title, p.h1, p.meta_description
FROM seo.pages p
WHERE p.embedding IS NULL
ORDER BY p.page_id
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select pages pending embedding: %w", err)
	}
	defer rows.Close()

	pages := make([]PendingEmbeddingPage, 0, limit)
	for rows.Next() {
		var page PendingEmbeddingPage
		if err := rows.Scan(&page.PageID, &page.Title, &page.H1, &page.MetaDescription); err != nil {
			return nil, fmt.Errorf("scan pending embedding page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending embedding pages: %w", err)
	}
	return pages, nil
}

func (p *Pool) SetPageEmbedding(ctx context.Context, pageID int64, vectorLiteral string, now time.Time) error {
	const q = `
UPDATE seo.pages
SET embedding = $2::vector, updated_at = $3
WHERE page_id = $1
`

	affected, err := p.Exec(ctx, q, pageID, vectorLiteral, now)
	if err != nil {
		return fmt.Errorf("set embedding page_id=%d: %w", pageID, err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (p *Pool) GetCorpusStats(ctx context.Context) (CorpusStats, error) {
	const q = `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE embedding IS NOT NULL),
	COUNT(*) FILTER (WHERE embedding IS NULL),
	(SELECT MAX(synced_at) FROM seo.sync_history WHERE status = 'completed')
FROM seo.pages
`

	var stats CorpusStats
	if err := p.QueryRow(ctx, q).Scan(
		&stats.Pages,
		&stats.EmbeddedPages,
		&stats.PendingEmbedding,
		&stats.LastSyncedAt,
	); err != nil {
		return CorpusStats{}, fmt.Errorf("corpus stats: %w", err)
	}
	return stats, nil
}
