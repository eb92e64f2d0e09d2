package entity

import (
	"strings"
	"time"

	"golang.org/x/net/html"
)

// pageNameDateLayout is the ISO date-only layout used when the latest item has no title.
const pageNameDateLayout = "2006-01-02"

// RawFeed is the parser-agnostic view of a fetched RSS/Atom feed.
type RawFeed struct {
	Title   string
	Updated *time.Time
	Items   []RawFeedItem
}

// RawFeedItem is one entry of a RawFeed. Every field is optional at the source level.
type RawFeedItem struct {
	Title     string
	Link      string
	Published *time.Time
	Updated   *time.Time
}

// FeedItem is the latest item of a feed after decoding.
type FeedItem struct {
	Title     string
	Link      string
	Published *time.Time
}

// FeedSnapshot is the resolved freshness data of one comic feed for a single sync.
// It is computed once by NewFeedSnapshot and never recomputed.
type FeedSnapshot struct {
	// FeedName is the feed title, falling back to the comic name.
	FeedName string
	// Latest is the first item of the feed.
	Latest FeedItem
	// DateUpdated is the item publish date, else the feed updated date.
	DateUpdated time.Time
	// PageName is the latest item title, falling back to DateUpdated as YYYY-MM-DD.
	PageName string
	// PageLink is the latest item link.
	PageLink string
}

// NewFeedSnapshot resolves every derived field of raw eagerly.
//
// Resolution rules:
//   - FeedName: feed title if present, else the comic name
//   - Latest: the first item; no items is a feed error
//   - DateUpdated: latest item's published date, else its updated date,
//     else the feed's updated date; none of these is a feed error
//   - PageName: latest item's title if non-empty, else DateUpdated as YYYY-MM-DD (UTC)
//   - PageLink: latest item's link; missing is a feed error
//
// All text fields are HTML-entity-decoded.
func NewFeedSnapshot(comic ComicConfig, raw RawFeed) (*FeedSnapshot, error) {
	feedName := comic.Name()
	if title := decodeText(raw.Title); title != "" {
		feedName = title
	}

	if len(raw.Items) == 0 {
		return nil, NewFeedError(comic.Name(), "no items in feed")
	}
	item := raw.Items[0]

	var updated time.Time
	switch {
	case item.Published != nil:
		updated = *item.Published
	case item.Updated != nil:
		updated = *item.Updated
	case raw.Updated != nil:
		updated = *raw.Updated
	default:
		return nil, NewFeedError(comic.Name(), "could not determine when last updated")
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		return nil, NewFeedError(comic.Name(), "latest page URL missing")
	}

	title := decodeText(item.Title)
	pageName := title
	if pageName == "" {
		pageName = FormatDateAsName(updated)
	}

	return &FeedSnapshot{
		FeedName: feedName,
		Latest: FeedItem{
			Title:     title,
			Link:      link,
			Published: item.Published,
		},
		DateUpdated: updated,
		PageName:    pageName,
		PageLink:    link,
	}, nil
}

// FormatDateAsName formats t as an ISO date (YYYY-MM-DD) in UTC.
func FormatDateAsName(t time.Time) string {
	return t.UTC().Format(pageNameDateLayout)
}

func decodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
