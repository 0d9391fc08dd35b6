package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"anchor.fit/linkweaver/internal/cli"
	"anchor.fit/linkweaver/internal/crawl"
	"anchor.fit/linkweaver/internal/logging"
	"anchor.fit/linkweaver/internal/pagefilter"
	"anchor.fit/linkweaver/internal/syncer"
)

func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	snapshotFile := fs.String("snapshot", "", "Path to the crawl snapshot JSON file")
	mode := fs.String("mode", "full", "Sync mode: full, quick or quick-content")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	showFilterStats := fs.Bool("filter-stats", false, "Print content filter statistics after the run")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *snapshotFile == "" {
		fmt.Fprintln(os.Stderr, "--snapshot is required")
		return 2
	}

	syncMode, err := syncer.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid mode: %v\n", err)
		return 2
	}

	payload, err := os.ReadFile(*snapshotFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read snapshot file: %v\n", err)
		return 2
	}

	snapshot, err := crawl.ValidateSnapshotPayload(json.RawMessage(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid crawl snapshot: %v\n", err)
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

	filter := pagefilter.New(logger, cfg.SitePathExclusionsList())
	engine := syncer.NewEngine(pool, logger)

	result, runErr := engine.Run(ctx, snapshot, syncMode, filter)
	if result.SyncID > 0 {
		fmt.Printf("Sync %d (%s): added=%d updated=%d unchanged=%d removed=%d failed=%d in %s\n",
			result.SyncID, result.Mode,
			result.Counts.Added, result.Counts.Updated, result.Counts.Unchanged,
			result.Counts.Removed, result.Counts.Failed,
			result.Duration.Round(time.Millisecond))
	}

	if *showFilterStats && result.FilterStats != nil {
		if err := printJSON(result.FilterStats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print filter stats: %v\n", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", runErr)
		return 1
	}
	return 0
}
