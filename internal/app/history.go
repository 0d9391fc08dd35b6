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

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 25, "Maximum sync runs to show")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 1")
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

	entries, err := pool.ListSyncHistory(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load sync history: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print history: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.SyncID, 10),
			formatUTCTimestamp(entry.SyncedAt),
			entry.Mode,
			entry.Status,
			strconv.Itoa(entry.PagesAdded),
			strconv.Itoa(entry.PagesUpdated),
			strconv.Itoa(entry.PagesUnchanged),
			strconv.Itoa(entry.PagesRemoved),
			strconv.Itoa(entry.PagesFailed),
			strconv.FormatInt(entry.DurationMS, 10),
		})
	}
	if err := writeTable([]string{"ID", "SYNCED_AT", "MODE", "STATUS", "ADDED", "UPDATED", "UNCHANGED", "REMOVED", "FAILED", "MS"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print history: %v\n", err)
		return 1
	}
	return 0
}
