package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "sync":
		return runSync(args[1:])
	case "embed":
		return runEmbed(args[1:])
	case "match":
		return runMatch(args[1:])
	case "history":
		return runHistory(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "linkweaver CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  linkweaver <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  sync     Reconcile a crawl snapshot file against the page corpus")
	fmt.Fprintln(os.Stderr, "  embed    Generate embeddings for pages missing them")
	fmt.Fprintln(os.Stderr, "  match    Resolve anchor text into ranked link targets")
	fmt.Fprintln(os.Stderr, "  history  Show recent sync runs")
	fmt.Fprintln(os.Stderr, "  stats    Show page corpus statistics")
	fmt.Fprintln(os.Stderr, "  serve    Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"linkweaver <command> -h\" for command-specific flags.")
}
