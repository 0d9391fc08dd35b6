package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"anchor.fit/linkweaver/internal/db"
	"anchor.fit/linkweaver/internal/globaltime"
)

// PageStore is the slice of the database pool the backfill reads pending
// pages from and writes vectors through.
type PageStore interface {
	ListPagesPendingEmbedding(ctx context.Context, limit int) ([]db.PendingEmbeddingPage, error)
	SetPageEmbedding(ctx context.Context, pageID int64, vectorLiteral string, now time.Time) error
}

// Backfiller populates the NULL embedding column left behind by sync inserts
// and content invalidations.
type Backfiller struct {
	store  PageStore
	client *Client
	logger zerolog.Logger
}

type BackfillOptions struct {
	Limit     int
	BatchSize int
}

type BackfillResult struct {
	Processed int
	Embedded  int
	Failed    int
}

func NewBackfiller(store PageStore, client *Client, logger zerolog.Logger) *Backfiller {
	return &Backfiller{
		store:  store,
		client: client,
		logger: logger,
	}
}

func (b *Backfiller) Run(ctx context.Context, opts BackfillOptions) (BackfillResult, error) {
	if b == nil || b.store == nil || b.client == nil {
		return BackfillResult{}, fmt.Errorf("backfiller is not initialized")
	}

	// Limit 0 means drain everything pending.
	limit := opts.Limit
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if limit > 0 && batchSize > limit {
		batchSize = limit
	}

	var result BackfillResult
	for limit <= 0 || result.Processed < limit {
		fetch := batchSize
		if limit > 0 {
			fetch = min(batchSize, limit-result.Processed)
		}
		pages, err := b.store.ListPagesPendingEmbedding(ctx, fetch)
		if err != nil {
			return result, err
		}
		if len(pages) == 0 {
			break
		}

		texts := make([]string, 0, len(pages))
		for _, page := range pages {
			texts = append(texts, EmbeddingInput(page.Title, page.H1, page.MetaDescription))
		}

		vectors, err := b.client.EmbedTexts(ctx, texts)
		if err != nil {
			return result, err
		}

		embeddedBefore := result.Embedded
		for i, page := range pages {
			result.Processed++

			literal, err := VectorLiteral(vectors[i], b.client.dimensions)
			if err != nil {
				result.Failed++
				b.logger.Warn().Err(err).Int64("page_id", page.PageID).Msg("skipping page with invalid embedding vector")
				continue
			}

			if err := b.store.SetPageEmbedding(ctx, page.PageID, literal, globaltime.UTC()); err != nil {
				result.Failed++
				b.logger.Error().Err(err).Int64("page_id", page.PageID).Msg("skipping page after embedding write failure")
				continue
			}
			result.Embedded++
		}

		b.logger.Debug().Int("batch", len(pages)).Int("embedded", result.Embedded).Int("failed", result.Failed).Msg("embedding backfill batch written")

		// Skipped pages stay pending, so a drain that embeds nothing would
		// refetch the same rows forever.
		if limit <= 0 && result.Embedded == embeddedBefore {
			b.logger.Warn().Int("failed", result.Failed).Msg("embedding backfill made no progress, stopping")
			break
		}
	}

	return result, nil
}
