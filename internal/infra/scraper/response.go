// Package scraper fetches comic feeds and pages.
//
// FeedResolver parses RSS/Atom with gofeed and resolves the freshness data of the
// latest item. PageExtractor scans comic pages in a single streaming pass through
// htmlscan and follows next-page links sequentially.
package scraper

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/pkg/sanitize"
)

const (
	maxBodySize = 10 * 1024 * 1024 // 10MB
)

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// responseURL returns the final URL of resp after redirects.
func responseURL(resp *http.Response) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}
	return nil
}

// statusError builds the comic error for a non-success response. The message carries
// a short plain-text excerpt of the body; the raw body is kept on the error.
func statusError(resp *http.Response, newErr func(comicName, message string) *entity.ComicError, comic entity.ComicConfig) *entity.ComicError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	target := ""
	if u := responseURL(resp); u != nil {
		target = u.String()
	}

	msg := fmt.Sprintf("received %d when retrieving %s", resp.StatusCode, target)
	if excerpt := sanitize.BodyExcerpt(body); excerpt != "" {
		msg += ": " + excerpt
	}
	return newErr(comic.Name(), msg).WithResponse(target, resp.StatusCode, string(body))
}

// NormalizeURL resolves the two URL shapes comic pages commonly use against ref,
// the URL of the response they were found in:
//   - "//host/path" takes ref's scheme
//   - "/path" takes ref's scheme and host
//
// Anything else, including document-relative paths, is returned unchanged.
func NormalizeURL(raw string, ref *url.URL) string {
	raw = strings.TrimSpace(raw)
	if ref == nil {
		return raw
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		return ref.Scheme + ":" + raw
	case strings.HasPrefix(raw, "/"):
		return ref.Scheme + "://" + ref.Host + raw
	default:
		return raw
	}
}
