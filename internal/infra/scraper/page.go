package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/infra/scraper/htmlscan"
)

// DefaultMaxPages caps a single comic's page chain.
const DefaultMaxPages = 50

// PageExtractor fetches comic pages and extracts their image, alt text and next-page link.
type PageExtractor struct {
	client   *http.Client
	scanner  *htmlscan.Scanner
	maxPages int
}

// PageOption configures a PageExtractor.
type PageOption func(*PageExtractor)

// WithMaxPages caps the number of pages ExtractChain follows. Values below 1 are ignored.
func WithMaxPages(n int) PageOption {
	return func(p *PageExtractor) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// NewPageExtractor creates a PageExtractor. The scanner is shared by every extraction
// of the run; it holds no per-page state.
func NewPageExtractor(client *http.Client, scanner *htmlscan.Scanner, opts ...PageOption) *PageExtractor {
	p := &PageExtractor{
		client:   client,
		scanner:  scanner,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract fetches pageURL and extracts its content.
// Every failure is a KindPage ComicError carrying the comic name.
func (p *PageExtractor) Extract(ctx context.Context, pageURL string, comic entity.ComicConfig) (*entity.PageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, entity.NewPageError(comic.Name(), "could not build page request").WithCause(err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, entity.NewPageError(comic.Name(), fmt.Sprintf("could not retrieve %s", pageURL)).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	return p.ExtractResponse(resp, comic)
}

// ExtractResponse extracts content from an already fetched page response.
// Relative URLs are normalized against the response's final URL. The caller owns resp.Body.
func (p *PageExtractor) ExtractResponse(resp *http.Response, comic entity.ComicConfig) (*entity.PageSnapshot, error) {
	if !isSuccess(resp) {
		return nil, statusError(resp, entity.NewPageError, comic)
	}

	ref := responseURL(resp)
	var imageURI, imageTitle, altText, nextURL string

	handlers := []htmlscan.Handler{{
		Selector: comic.ImageSelector(),
		Element: func(el *htmlscan.Element) bool {
			src, _ := el.Attr("src")
			if strings.TrimSpace(src) == "" {
				return false
			}
			imageURI = NormalizeURL(src, ref)
			if title, ok := el.Attr("title"); ok {
				imageTitle = strings.TrimSpace(title)
			}
			return true
		},
	}}

	if sel := comic.AltTextSelector(); sel != "" {
		handlers = append(handlers, htmlscan.Handler{
			Selector: sel,
			Element: func(el *htmlscan.Element) bool {
				title, _ := el.Attr("title")
				if title = strings.TrimSpace(title); title != "" {
					altText = title
					return true
				}
				return false
			},
			Text: func(_ *htmlscan.Element, text string) bool {
				if text = strings.TrimSpace(text); text != "" {
					altText = text
					return true
				}
				return false
			},
		})
	}

	if sel := comic.NextPageSelector(); sel != "" {
		handlers = append(handlers, htmlscan.Handler{
			Selector: sel,
			Element: func(el *htmlscan.Element) bool {
				href, _ := el.Attr("href")
				if strings.TrimSpace(href) == "" {
					return false
				}
				nextURL = NormalizeURL(href, ref)
				return true
			},
		})
	}

	if err := p.scanner.Scan(io.LimitReader(resp.Body, maxBodySize), handlers...); err != nil {
		return nil, entity.NewPageError(comic.Name(), "could not scan page").WithCause(err)
	}

	if imageURI == "" {
		return nil, entity.NewPageError(comic.Name(), "could not find image URI")
	}
	if altText == "" {
		altText = imageTitle
	}

	page, err := entity.NewPageSnapshot(imageURI, altText, nextURL)
	if err != nil {
		return nil, entity.NewPageError(comic.Name(), err.Error())
	}
	return page, nil
}

// ExtractChain extracts firstURL and then every page reached by following
// NextPageURL, in order. Pages are fetched one at a time since each next URL is
// only known once its predecessor is scanned. The chain stops at a page without
// a next link, at a URL already visited, or after the configured page cap.
// Any page failure fails the whole chain.
func (p *PageExtractor) ExtractChain(ctx context.Context, firstURL string, comic entity.ComicConfig) ([]entity.PageSnapshot, error) {
	visited := make(map[string]struct{})
	pages := make([]entity.PageSnapshot, 0, 1)

	for next := firstURL; next != ""; {
		if _, seen := visited[next]; seen {
			slog.Warn("pagination revisits a page, stopping chain",
				slog.String("comic", comic.Name()),
				slog.String("url", next),
				slog.Int("pages", len(pages)))
			break
		}
		if len(pages) >= p.maxPages {
			slog.Warn("pagination reached page cap, stopping chain",
				slog.String("comic", comic.Name()),
				slog.String("url", next),
				slog.Int("max_pages", p.maxPages))
			break
		}
		visited[next] = struct{}{}

		page, err := p.Extract(ctx, next, comic)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
		next = page.NextPageURL
	}

	return pages, nil
}
