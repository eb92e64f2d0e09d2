package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// IndexKey is the well-known cache key holding the JSON array of comic records.
const IndexKey = "index"

// ComicData is the plain, unvalidated shape of one index record.
// Use NewComicConfig or ParseComicConfig to obtain a validated ComicConfig.
type ComicData struct {
	Name             string   `json:"name" yaml:"name"`
	ImageSelector    string   `json:"imageSelector" yaml:"imageSelector"`
	AltTextSelector  string   `json:"altTextSelector,omitempty" yaml:"altTextSelector,omitempty"`
	NextPageSelector string   `json:"nextPageSelector,omitempty" yaml:"nextPageSelector,omitempty"`
	FeedURL          string   `json:"feedUrl" yaml:"feedUrl"`
	Webhooks         []string `json:"webhooks" yaml:"webhooks"`
}

// comicRecord accepts both the current key names and the legacy ones
// (altSelector, rssUrl, webhookUrls) still found in older indexes.
type comicRecord struct {
	ComicData
	AltSelector *string   `json:"altSelector"`
	RSSURL      *string   `json:"rssUrl"`
	WebhookURLs *[]string `json:"webhookUrls"`
}

// ComicConfig is a validated, immutable comic definition.
// Fields are unexported so a constructed value cannot be modified;
// accessors return copies where the underlying value is mutable.
type ComicConfig struct {
	name             string
	imageSelector    string
	altTextSelector  string
	nextPageSelector string
	feedURL          string
	webhooks         []string
}

// NewComicConfig validates data and builds a ComicConfig.
// All field problems are reported together in a single KindConfig ComicError;
// a ComicConfig is returned only when every field is valid.
func NewComicConfig(data ComicData) (ComicConfig, error) {
	var problems []error

	if strings.TrimSpace(data.Name) == "" {
		problems = append(problems, &ValidationError{Field: "name", Message: "name is required"})
	}
	if err := ValidateSelector("imageSelector", data.ImageSelector); err != nil {
		problems = append(problems, err)
	}
	if data.AltTextSelector != "" {
		if err := ValidateSelector("altTextSelector", data.AltTextSelector); err != nil {
			problems = append(problems, err)
		}
	}
	if data.NextPageSelector != "" {
		if err := ValidateSelector("nextPageSelector", data.NextPageSelector); err != nil {
			problems = append(problems, err)
		}
	}
	if err := ValidateURL("feedUrl", data.FeedURL); err != nil {
		problems = append(problems, err)
	}
	for i, hook := range data.Webhooks {
		if err := ValidateURL(fmt.Sprintf("webhooks[%d]", i), hook); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) > 0 {
		label := "error parsing index item"
		if name := strings.TrimSpace(data.Name); name != "" {
			label = fmt.Sprintf("error parsing index item %q", name)
		}
		return ComicConfig{}, NewConfigError(label, errors.Join(problems...))
	}

	webhooks := make([]string, len(data.Webhooks))
	copy(webhooks, data.Webhooks)

	return ComicConfig{
		name:             data.Name,
		imageSelector:    data.ImageSelector,
		altTextSelector:  data.AltTextSelector,
		nextPageSelector: data.NextPageSelector,
		feedURL:          data.FeedURL,
		webhooks:         webhooks,
	}, nil
}

// ParseComicConfig decodes one raw index record and validates it.
// Records that are not JSON objects, or whose fields have the wrong types,
// fail with a KindConfig ComicError.
func ParseComicConfig(raw json.RawMessage) (ComicConfig, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ComicConfig{}, NewConfigError("error parsing index item", fmt.Errorf("%w: record must be an object", ErrInvalidInput))
	}

	var rec comicRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return ComicConfig{}, NewConfigError("error parsing index item", err)
	}

	data := rec.ComicData
	if data.AltTextSelector == "" && rec.AltSelector != nil {
		data.AltTextSelector = *rec.AltSelector
	}
	if data.FeedURL == "" && rec.RSSURL != nil {
		data.FeedURL = *rec.RSSURL
	}
	if data.Webhooks == nil && rec.WebhookURLs != nil {
		data.Webhooks = *rec.WebhookURLs
	}

	return NewComicConfig(data)
}

// Name returns the comic's identity.
func (c ComicConfig) Name() string { return c.name }

// ImageSelector returns the selector locating the comic image.
func (c ComicConfig) ImageSelector() string { return c.imageSelector }

// AltTextSelector returns the optional selector locating alt text ("" when unset).
func (c ComicConfig) AltTextSelector() string { return c.altTextSelector }

// NextPageSelector returns the optional selector locating the next page link ("" when unset).
func (c ComicConfig) NextPageSelector() string { return c.nextPageSelector }

// FeedURL returns the RSS/Atom feed URL.
func (c ComicConfig) FeedURL() string { return c.feedURL }

// Webhooks returns a copy of the ordered webhook targets.
func (c ComicConfig) Webhooks() []string {
	out := make([]string, len(c.webhooks))
	copy(out, c.webhooks)
	return out
}

// Data returns the plain representation of the config, suitable for re-encoding.
func (c ComicConfig) Data() ComicData {
	return ComicData{
		Name:             c.name,
		ImageSelector:    c.imageSelector,
		AltTextSelector:  c.altTextSelector,
		NextPageSelector: c.nextPageSelector,
		FeedURL:          c.feedURL,
		Webhooks:         c.Webhooks(),
	}
}

// CacheKey derives the cache key recording when webhookURL was last notified
// about the feed at feedURL.
func CacheKey(feedURL, webhookURL string) string {
	return feedURL + "|" + webhookURL
}

// SplitCacheKey reverses CacheKey. A key without a separator is returned
// whole as the feed part.
func SplitCacheKey(key string) (feedURL, webhookURL string) {
	feedURL, webhookURL, _ = strings.Cut(key, "|")
	return feedURL, webhookURL
}

// CacheKey returns the cache key for one of this comic's webhooks.
func (c ComicConfig) CacheKey(webhookURL string) string {
	return CacheKey(c.feedURL, webhookURL)
}
