// Package main provides the operator CLI for the comic cache.
// Usage: comic-index <import|list|show-index> [flags]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"comic-notifier/internal/config"
	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/infra/adapter/persistence"
	"comic-notifier/internal/observability/logging"
	pkgconfig "comic-notifier/internal/pkg/config"
	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/repository"
	"comic-notifier/internal/usecase/comic"
	"comic-notifier/internal/usecase/notify"
)

const usage = `Usage: comic-index <command> [flags]

Commands:
  import <file>   Validate a JSON or YAML index and store it in the cache
  list            List cached notification dates (feed|webhook -> date)
  show-index      Print the stored index and report invalid records

Examples:
  comic-index import comics.yaml
  comic-index import --force legacy-index.json
  comic-index list --output json
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Args[2:], os.Stdout, os.Stderr))
}

func run(command string, args []string, stdout, stderr io.Writer) int {
	logger := logging.NewTextLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	metrics := pkgconfig.NewConfigMetrics("index_cli")
	metrics.MustRegister(prometheus.NewRegistry())
	appConfig, err := config.LoadAppConfig(logger, metrics)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", sanitize.Error(err))
		return 1
	}

	switch command {
	case "import", "list", "show-index":
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s", command, usage)
		return 2
	}

	store, closer, err := persistence.Open(ctx, persistence.Options{
		Backend:     appConfig.Cache.Backend,
		DatabaseURL: appConfig.Cache.DatabaseURL,
		SQLitePath:  appConfig.Cache.SQLitePath,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open cache: %s\n", sanitize.Error(err))
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()

	cli := &cli{store: store, stdout: stdout, stderr: stderr}
	switch command {
	case "import":
		return cli.importIndex(ctx, args)
	case "list":
		return cli.list(ctx, args)
	default:
		return cli.showIndex(ctx, args)
	}
}

type cli struct {
	store  repository.KVStore
	stdout io.Writer
	stderr io.Writer
}

// ListEntry is the JSON output of the list command.
type ListEntry struct {
	Feed    string    `json:"feed"`
	Webhook string    `json:"webhook"`
	Date    time.Time `json:"date,omitzero"`
	Error   string    `json:"error,omitempty"`
}

func (c *cli) importIndex(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	force := fs.Bool("force", false, "Store the index even when some records are invalid")
	format := fs.String("format", "", "Input format: json or yaml (default: from file extension)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Error: import requires exactly one file")
		return 2
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if *format == "" {
		*format = comic.FormatFromPath(path)
	}

	records, err := comic.DecodeIndexDocument(data, *format)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	batch, err := comic.ImportIndex(ctx, c.store, records, comic.ImportOptions{Force: *force})
	c.printRecordErrors(batch)
	if err != nil {
		if errors.Is(err, comic.ErrIndexRejected) {
			fmt.Fprintln(c.stderr, "Index not stored; fix the records above or pass --force.")
		} else {
			fmt.Fprintf(c.stderr, "Error: %s\n", sanitize.Error(err))
		}
		return 1
	}

	fmt.Fprintf(c.stdout, "Imported %d records (%d valid comics).\n", len(records), len(batch.Comics))
	return 0
}

func (c *cli) list(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	output := fs.String("output", "text", "Output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dates, err := notify.ListCachedDates(ctx, c.store)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", sanitize.Error(err))
		return 1
	}

	entries := make([]ListEntry, 0, len(dates))
	for _, d := range dates {
		feed, hook := entity.SplitCacheKey(d.Key)
		entry := ListEntry{Feed: feed, Webhook: sanitize.String(hook), Date: d.Date}
		if d.Err != nil {
			entry.Error = d.Err.Error()
		}
		entries = append(entries, entry)
	}

	if *output == "json" {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.stdout, "No cached notification dates.")
		return 0
	}
	for _, e := range entries {
		date := e.Date.Format(time.RFC3339)
		if e.Error != "" {
			date = "invalid: " + e.Error
		}
		fmt.Fprintf(c.stdout, "%s | %s -> %s\n", e.Feed, e.Webhook, date)
	}
	return 0
}

func (c *cli) showIndex(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("show-index", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	batch, err := comic.LoadIndex(ctx, c.store)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %s\n", sanitize.Error(err))
		return 1
	}

	for _, cfg := range batch.Comics {
		fmt.Fprintf(c.stdout, "%s\n  feed: %s\n  image: %s\n  webhooks: %d\n",
			cfg.Name(), cfg.FeedURL(), cfg.ImageSelector(), len(cfg.Webhooks()))
	}
	c.printRecordErrors(batch)
	fmt.Fprintf(c.stdout, "%d valid comics, %d invalid records.\n", len(batch.Comics), batch.Errors.Len())
	if batch.Errors.Len() > 0 {
		return 1
	}
	return 0
}

func (c *cli) printRecordErrors(batch *comic.Batch) {
	if batch == nil {
		return
	}
	for _, err := range batch.Errors.Errors() {
		fmt.Fprintf(c.stderr, "invalid record: %s\n", sanitize.Error(err))
	}
}
