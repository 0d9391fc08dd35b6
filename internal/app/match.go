package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"anchor.fit/linkweaver/internal/cli"
	"anchor.fit/linkweaver/internal/embed"
	"anchor.fit/linkweaver/internal/logging"
	"anchor.fit/linkweaver/internal/match"
)

type anchorListFlag []string

func (a *anchorListFlag) String() string {
	return strings.Join(*a, ", ")
}

func (a *anchorListFlag) Set(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("anchor text must not be empty")
	}
	*a = append(*a, trimmed)
	return nil
}

func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	var anchors anchorListFlag
	fs.Var(&anchors, "anchor", "Anchor text to match (repeatable)")
	threshold := fs.Float64("threshold", 0, "Relevance threshold override (0 = config default)")
	limit := fs.Int("limit", 0, "Options per anchor override (0 = config default)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if len(anchors) == 0 {
		fmt.Fprintln(os.Stderr, "at least one --anchor is required")
		return 2
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "--threshold must be within [0, 1]")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	embedder, err := embed.NewClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize embedding client: %v\n", err)
		return 1
	}

	opts := match.Options{
		Threshold:      cfg.MatchThreshold,
		Limit:          cfg.MatchLimit,
		Timeout:        cfg.MatchTimeout,
		PacingInterval: cfg.MatchPacingInterval,
	}
	if *threshold > 0 {
		opts.Threshold = *threshold
	}
	if *limit > 0 {
		opts.Limit = *limit
	}

	candidates := make([]match.AnchorCandidate, 0, len(anchors))
	for _, text := range anchors {
		candidates = append(candidates, match.AnchorCandidate{Text: text})
	}

	engine := match.NewEngine(embedder, pool, logger, opts)
	results, err := engine.MatchBatch(ctx, candidates, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match batch aborted: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print results: %v\n", err)
			return 1
		}
		return exitCodeForResults(results)
	}

	rows := make([][]string, 0)
	for _, result := range results {
		if len(result.Options) == 0 {
			rows = append(rows, []string{
				truncateForTable(result.Candidate.Text, 40),
				string(result.Status),
				"", "", "", truncateForTable(result.Error, 60),
			})
			continue
		}
		for _, option := range result.Options {
			rows = append(rows, []string{
				truncateForTable(result.Candidate.Text, 40),
				string(result.Status),
				strconv.FormatFloat(option.RelevanceScore, 'f', 3, 64),
				string(option.MatchedSection),
				truncateForTable(option.URL, 70),
				"",
			})
		}
	}
	if err := writeTable([]string{"ANCHOR", "STATUS", "SCORE", "SECTION", "URL", "ERROR"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print results: %v\n", err)
		return 1
	}
	return exitCodeForResults(results)
}

// exitCodeForResults maps per-candidate outcomes to a process code. Degraded
// candidates are visible in the output but do not fail the command.
func exitCodeForResults(results []match.CandidateResult) int {
	for _, result := range results {
		if result.Status == match.StatusFailed {
			return 1
		}
	}
	return 0
}
