package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"

	"comic-notifier/internal/domain/entity"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// FeedResolver fetches a comic's feed and resolves its FeedSnapshot.
type FeedResolver struct {
	client *http.Client
}

// NewFeedResolver creates a new FeedResolver with the given HTTP client.
// The client should carry the outbound rate limiting and circuit breaking
// (see httpclient.New) and a protocol-level timeout.
func NewFeedResolver(client *http.Client) *FeedResolver {
	return &FeedResolver{client: client}
}

// Resolve retrieves the comic's feed and resolves its freshness data.
// Every failure is a KindFeed ComicError carrying the comic name.
func (f *FeedResolver) Resolve(ctx context.Context, comic entity.ComicConfig) (*entity.FeedSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, comic.FeedURL(), nil)
	if err != nil {
		return nil, entity.NewFeedError(comic.Name(), "could not build feed request").WithCause(err)
	}
	req.Header.Set("Accept", feedAccept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, entity.NewFeedError(comic.Name(), fmt.Sprintf("could not retrieve %s", comic.FeedURL())).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	return f.ResolveResponse(resp, comic)
}

// ResolveResponse resolves freshness data from an already fetched feed response.
// The caller owns resp.Body.
func (f *FeedResolver) ResolveResponse(resp *http.Response, comic entity.ComicConfig) (*entity.FeedSnapshot, error) {
	if !isSuccess(resp) {
		return nil, statusError(resp, entity.NewFeedError, comic)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, entity.NewFeedError(comic.Name(), "could not read feed").WithCause(err)
	}

	// gofeed.Parser keeps per-parse state, so one is created per call.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, entity.NewFeedError(comic.Name(), "could not parse feed").WithCause(err)
	}

	snapshot, err := entity.NewFeedSnapshot(comic, toRawFeed(feed))
	if err != nil {
		return nil, err
	}

	slog.Debug("feed resolved",
		slog.String("comic", comic.Name()),
		slog.String("feed_type", feed.FeedType),
		slog.Int("items", len(feed.Items)),
		slog.String("page_link", snapshot.PageLink),
		slog.Time("date_updated", snapshot.DateUpdated))

	return snapshot, nil
}

func toRawFeed(feed *gofeed.Feed) entity.RawFeed {
	raw := entity.RawFeed{
		Title:   feed.Title,
		Updated: feed.UpdatedParsed,
		Items:   make([]entity.RawFeedItem, 0, len(feed.Items)),
	}
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		link := it.Link
		if link == "" && len(it.Links) > 0 {
			link = it.Links[0]
		}
		raw.Items = append(raw.Items, entity.RawFeedItem{
			Title:     it.Title,
			Link:      link,
			Published: it.PublishedParsed,
			Updated:   it.UpdatedParsed,
		})
	}
	return raw
}
