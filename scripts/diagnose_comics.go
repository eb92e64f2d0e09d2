package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"comic-notifier/internal/config"
	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/infra/adapter/persistence"
	"comic-notifier/internal/infra/httpclient"
	"comic-notifier/internal/infra/scraper"
	"comic-notifier/internal/observability/logging"
	pkgconfig "comic-notifier/internal/pkg/config"
	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/usecase/comic"
)

// ComicDiagnostic represents the diagnostic result for a single comic
type ComicDiagnostic struct {
	Name         string `json:"name"`
	FeedURL      string `json:"feed_url"`
	Status       string `json:"status"` // "OK", "FEED_ERROR", "PAGE_ERROR", "NO_IMAGE"
	LatestItem   string `json:"latest_item,omitempty"`
	LatestDate   string `json:"latest_date,omitempty"`
	PageURL      string `json:"page_url,omitempty"`
	HTTPCode     int    `json:"http_code,omitempty"`
	ImageMatches int    `json:"image_matches"`
	AltMatches   int    `json:"alt_matches"`
	NextMatches  int    `json:"next_matches"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func main() {
	indexFile := flag.String("index", "", "Read comics from a JSON or YAML index file instead of the cache")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	logger := logging.NewTextLogger()
	metrics := pkgconfig.NewConfigMetrics("diagnose")
	metrics.MustRegister(prometheus.NewRegistry())
	cfg, err := config.LoadAppConfig(logger, metrics)
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", sanitize.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	batch, err := loadBatch(ctx, cfg, *indexFile)
	if err != nil {
		log.Fatalf("Failed to load comics: %s", sanitize.Error(err))
	}
	for _, e := range batch.Errors.Errors() {
		log.Printf("skipping invalid record: %s", sanitize.Error(e))
	}

	client := httpclient.New(cfg.HTTPClientConfig())
	resolver := scraper.NewFeedResolver(client)

	diagnostics := make([]ComicDiagnostic, len(batch.Comics))
	var g errgroup.Group
	g.SetLimit(8)
	for i, c := range batch.Comics {
		i, c := i, c
		g.Go(func() error {
			diagnostics[i] = diagnoseComic(ctx, client, resolver, c)
			return nil
		})
	}
	_ = g.Wait()

	generateReport(diagnostics)
	generateJSONReport(diagnostics)
}

func loadBatch(ctx context.Context, cfg *config.AppConfig, indexFile string) (*comic.Batch, error) {
	if indexFile != "" {
		data, err := os.ReadFile(indexFile)
		if err != nil {
			return nil, err
		}
		records, err := comic.DecodeIndexDocument(data, comic.FormatFromPath(indexFile))
		if err != nil {
			return nil, err
		}
		// Validate only; a memory store keeps the real cache untouched.
		store, _, _ := persistence.Open(ctx, persistence.Options{Backend: persistence.BackendMemory})
		return comic.ImportIndex(ctx, store, records, comic.ImportOptions{Force: true})
	}

	store, closer, err := persistence.Open(ctx, persistence.Options{
		Backend:     cfg.Cache.Backend,
		DatabaseURL: cfg.Cache.DatabaseURL,
		SQLitePath:  cfg.Cache.SQLitePath,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	return comic.LoadIndex(ctx, store)
}

func diagnoseComic(ctx context.Context, client *http.Client, resolver *scraper.FeedResolver, c entity.ComicConfig) ComicDiagnostic {
	diag := ComicDiagnostic{Name: c.Name(), FeedURL: c.FeedURL()}
	start := time.Now()
	defer func() { diag.ResponseTime = time.Since(start).Milliseconds() }()

	feed, err := resolver.Resolve(ctx, c)
	if err != nil {
		diag.Status = "FEED_ERROR"
		diag.ErrorMessage = sanitize.Error(err)
		return diag
	}
	diag.LatestItem = feed.PageName
	diag.LatestDate = feed.DateUpdated.Format(time.RFC3339)
	diag.PageURL = feed.PageLink

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.PageLink, nil)
	if err != nil {
		diag.Status = "PAGE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	resp, err := client.Do(req)
	if err != nil {
		diag.Status = "PAGE_ERROR"
		diag.ErrorMessage = sanitize.Error(err)
		return diag
	}
	defer func() { _ = resp.Body.Close() }()
	diag.HTTPCode = resp.StatusCode
	if resp.StatusCode >= 300 {
		diag.Status = "PAGE_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return diag
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		diag.Status = "PAGE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	diag.ImageMatches = doc.Find(c.ImageSelector()).Length()
	if sel := c.AltTextSelector(); sel != "" {
		diag.AltMatches = doc.Find(sel).Length()
	}
	if sel := c.NextPageSelector(); sel != "" {
		diag.NextMatches = doc.Find(sel).Length()
	}

	if diag.ImageMatches == 0 {
		diag.Status = "NO_IMAGE"
		diag.ErrorMessage = fmt.Sprintf("selector %q matched nothing", c.ImageSelector())
		return diag
	}
	diag.Status = "OK"
	return diag
}

func generateReport(diagnostics []ComicDiagnostic) {
	var b strings.Builder
	fmt.Fprintf(&b, "===============================================\n")
	fmt.Fprintf(&b, "Comic Diagnostic Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total Comics: %d\n", len(diagnostics))
	fmt.Fprintf(&b, "===============================================\n\n")

	counts := map[string]int{}
	for _, d := range diagnostics {
		counts[d.Status]++
	}
	for _, status := range []string{"OK", "FEED_ERROR", "PAGE_ERROR", "NO_IMAGE"} {
		fmt.Fprintf(&b, "%-11s %d\n", status+":", counts[status])
	}
	b.WriteString("\n")

	for _, d := range diagnostics {
		fmt.Fprintf(&b, "[%s] %s (%dms)\n", d.Status, d.Name, d.ResponseTime)
		fmt.Fprintf(&b, "  feed: %s\n", d.FeedURL)
		if d.PageURL != "" {
			fmt.Fprintf(&b, "  latest: %s (%s)\n  page: %s\n", d.LatestItem, d.LatestDate, d.PageURL)
			fmt.Fprintf(&b, "  matches: image=%d alt=%d next=%d\n", d.ImageMatches, d.AltMatches, d.NextMatches)
		}
		if d.ErrorMessage != "" {
			fmt.Fprintf(&b, "  error: %s\n", d.ErrorMessage)
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile("comic_diagnostic_report.txt", []byte(b.String()), 0o644); err != nil {
		log.Printf("Failed to write report file: %v", err)
		return
	}
	fmt.Print(b.String())
}

func generateJSONReport(diagnostics []ComicDiagnostic) {
	data, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal JSON: %v", err)
		return
	}
	if err := os.WriteFile("comic_diagnostic_report.json", data, 0o644); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}
	log.Println("JSON report written to comic_diagnostic_report.json")
}
