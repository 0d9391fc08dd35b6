package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"anchor.fit/linkweaver/internal/cli"
	"anchor.fit/linkweaver/internal/embed"
	"anchor.fit/linkweaver/internal/logging"
)

func runEmbed(args []string) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 0, "Maximum pages to embed (0 = all pending)")
	batchSize := fs.Int("batch-size", 64, "Pages per embedding request")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *batchSize < 1 {
		fmt.Fprintln(os.Stderr, "--batch-size must be >= 1")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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

	client, err := embed.NewClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize embedding client: %v\n", err)
		return 1
	}

	backfiller := embed.NewBackfiller(pool, client, logger)
	result, runErr := backfiller.Run(ctx, embed.BackfillOptions{
		Limit:     *limit,
		BatchSize: *batchSize,
	})

	fmt.Printf("Embedding backfill: processed=%d embedded=%d failed=%d\n",
		result.Processed, result.Embedded, result.Failed)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Embedding backfill failed: %v\n", runErr)
		return 1
	}
	return 0
}
