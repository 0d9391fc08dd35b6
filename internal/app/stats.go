package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"anchor.fit/linkweaver/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.GetCorpusStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load corpus stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"pages":             stats.Pages,
			"embedded_pages":    stats.EmbeddedPages,
			"pending_embedding": stats.PendingEmbedding,
			"last_synced_at":    stats.LastSyncedAt,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print stats: %v\n", err)
			return 1
		}
		return 0
	}

	lastSynced := ""
	if stats.LastSyncedAt != nil {
		lastSynced = formatUTCTimestamp(*stats.LastSyncedAt)
	}
	rows := [][]string{{
		strconv.FormatInt(stats.Pages, 10),
		strconv.FormatInt(stats.EmbeddedPages, 10),
		strconv.FormatInt(stats.PendingEmbedding, 10),
		lastSynced,
	}}
	if err := writeTable([]string{"PAGES", "EMBEDDED", "PENDING", "LAST_SYNCED"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print stats: %v\n", err)
		return 1
	}
	return 0
}
