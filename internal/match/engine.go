package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"anchor.fit/linkweaver/internal/db"
	"anchor.fit/linkweaver/internal/retry"
)

const (
	relaxedThresholdFloor = 0.5
	relaxedThresholdDelta = 0.2
	relaxedLimitCap       = 20
)

// Embedder turns anchor text into a pgvector literal.
type Embedder interface {
	EmbedLiteral(ctx context.Context, text string) (string, error)
}

// Searcher runs the similarity query against the corpus.
type Searcher interface {
	MatchPages(ctx context.Context, vectorLiteral string, threshold float64, limit int) ([]db.PageMatch, error)
}

// AnchorCandidate is a span of article text proposed as link text.
// Request-scoped, never persisted.
type AnchorCandidate struct {
	Text          string `json:"text"`
	StartIndex    int    `json:"start_index"`
	EndIndex      int    `json:"end_index"`
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`
}

// Option is one ranked link target for an anchor.
type Option struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Description    string  `json:"description,omitempty"`
	MatchedSection Section `json:"matched_section"`
	MatchedContent string  `json:"matched_content,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	// StatusDegraded marks a candidate whose search timed out after all
	// retries. It carries zero options; unrelated pages are never substituted.
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

type CandidateResult struct {
	Candidate AnchorCandidate `json:"candidate"`
	Status    Status          `json:"status"`
	Options   []Option        `json:"options"`
	Error     string          `json:"error,omitempty"`
}

type Options struct {
	Threshold      float64
	Limit          int
	Timeout        time.Duration
	PacingInterval time.Duration
}

// Engine resolves anchor candidates into ranked link targets.
type Engine struct {
	embedder Embedder
	searcher Searcher
	policy   retry.Policy
	limiter  *rate.Limiter
	logger   zerolog.Logger
	opts     Options
}

func NewEngine(embedder Embedder, searcher Searcher, logger zerolog.Logger, opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.52
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PacingInterval <= 0 {
		opts.PacingInterval = 100 * time.Millisecond
	}

	return &Engine{
		embedder: embedder,
		searcher: searcher,
		policy:   retry.DefaultPolicy,
		limiter:  rate.NewLimiter(rate.Every(opts.PacingInterval), 1),
		logger:   logger,
		opts:     opts,
	}
}

// MatchOne runs the per-candidate state machine: embed, search with retry,
// score. An embedding failure is terminal for the candidate only; exhausted
// search retries degrade to zero options.
func (e *Engine) MatchOne(ctx context.Context, candidate AnchorCandidate) CandidateResult {
	result := CandidateResult{Candidate: candidate, Options: []Option{}}

	anchor := strings.TrimSpace(candidate.Text)
	if anchor == "" {
		result.Status = StatusFailed
		result.Error = "anchor text is empty"
		return result
	}

	literal, err := e.embedder.EmbedLiteral(ctx, anchor)
	if err != nil {
		e.logger.Warn().Err(err).Str("anchor", anchor).Msg("anchor embedding failed")
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("embed anchor: %v", err)
		return result
	}

	matches, err := e.searchWithRetry(ctx, literal)
	if err != nil {
		if retry.IsTimeout(err) {
			e.logger.Warn().Err(err).Str("anchor", anchor).Msg("similarity search degraded after retries")
			result.Status = StatusDegraded
			result.Error = fmt.Sprintf("similarity search timed out: %v", err)
			return result
		}
		e.logger.Error().Err(err).Str("anchor", anchor).Msg("similarity search failed")
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("similarity search: %v", err)
		return result
	}

	result.Options = e.scoreMatches(anchor, matches)
	result.Status = StatusSucceeded
	return result
}

// MatchBatch processes candidates strictly sequentially with pacing between
// them, reporting each completed candidate through progress. A failed
// candidate never aborts the batch.
func (e *Engine) MatchBatch(ctx context.Context, candidates []AnchorCandidate, progress func(index int, result CandidateResult)) ([]CandidateResult, error) {
	results := make([]CandidateResult, 0, len(candidates))
	for i, candidate := range candidates {
		if i > 0 {
			if err := e.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		result := e.MatchOne(ctx, candidate)
		results = append(results, result)
		if progress != nil {
			progress(i, result)
		}
	}
	return results, nil
}

// searchWithRetry issues the relaxed similarity query under a hard deadline,
// retrying timeout-class failures per the engine policy.
func (e *Engine) searchWithRetry(ctx context.Context, vectorLiteral string) ([]db.PageMatch, error) {
	threshold := relaxedThreshold(e.opts.Threshold)
	limit := relaxedLimit(e.opts.Limit)

	var matches []db.PageMatch
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()

		found, searchErr := e.searcher.MatchPages(attemptCtx, vectorLiteral, threshold, limit)
		if searchErr != nil {
			return searchErr
		}
		matches = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// scoreMatches applies section resolution and bonuses, then filters back down
// to the requested threshold and limit. Filtering uses the adjusted score so
// the relaxation window can promote literal-matching pages whose raw
// similarity sits just under the threshold.
func (e *Engine) scoreMatches(anchor string, matches []db.PageMatch) []Option {
	options := make([]Option, 0, len(matches))
	for _, match := range matches {
		section, content := resolveSection(anchor, match.Title, match.H1, match.MetaDescription)
		score := adjustScore(match.Similarity, section)
		if score < e.opts.Threshold {
			continue
		}

		option := Option{
			ID:             match.PageID,
			URL:            match.URL,
			MatchedSection: section,
			MatchedContent: content,
			RelevanceScore: score,
		}
		if match.Title != nil {
			option.Title = strings.TrimSpace(*match.Title)
		}
		if match.MetaDescription != nil {
			option.Description = strings.TrimSpace(*match.MetaDescription)
		}
		options = append(options, option)
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].RelevanceScore > options[j].RelevanceScore
	})
	if len(options) > e.opts.Limit {
		options = options[:e.opts.Limit]
	}
	return options
}

func relaxedThreshold(threshold float64) float64 {
	return math.Max(relaxedThresholdFloor, threshold-relaxedThresholdDelta)
}

func relaxedLimit(limit int) int {
	return min(2*limit, relaxedLimitCap)
}
