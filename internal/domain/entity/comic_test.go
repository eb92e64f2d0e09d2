package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validComicData() ComicData {
	return ComicData{
		Name:             "Test Comic",
		ImageSelector:    "#comic img",
		AltTextSelector:  "#comic img",
		NextPageSelector: "a.next",
		FeedURL:          "https://comic.example.com/rss.xml",
		Webhooks:         []string{"https://hooks.example.com/1", "https://hooks.example.com/2"},
	}
}

func TestNewComicConfig_Valid(t *testing.T) {
	data := validComicData()

	comic, err := NewComicConfig(data)
	require.NoError(t, err)

	if diff := cmp.Diff(data, comic.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Test Comic", comic.Name())
	assert.Equal(t, "#comic img", comic.ImageSelector())
	assert.Equal(t, "a.next", comic.NextPageSelector())
	assert.Equal(t, "https://comic.example.com/rss.xml", comic.FeedURL())
}

func TestNewComicConfig_OptionalFieldsEmpty(t *testing.T) {
	data := validComicData()
	data.AltTextSelector = ""
	data.NextPageSelector = ""
	data.Webhooks = nil

	comic, err := NewComicConfig(data)
	require.NoError(t, err)
	assert.Empty(t, comic.AltTextSelector())
	assert.Empty(t, comic.NextPageSelector())
	assert.Empty(t, comic.Webhooks())
}

func TestNewComicConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *ComicData)
		field  string
	}{
		{name: "missing name", mutate: func(d *ComicData) { d.Name = "" }, field: "name"},
		{name: "blank name", mutate: func(d *ComicData) { d.Name = "  " }, field: "name"},
		{name: "missing image selector", mutate: func(d *ComicData) { d.ImageSelector = "" }, field: "imageSelector"},
		{name: "bad alt selector", mutate: func(d *ComicData) { d.AltTextSelector = "img[" }, field: "altTextSelector"},
		{name: "bad next selector", mutate: func(d *ComicData) { d.NextPageSelector = "a[href" }, field: "nextPageSelector"},
		{name: "relative feed url", mutate: func(d *ComicData) { d.FeedURL = "/rss.xml" }, field: "feedUrl"},
		{name: "bad webhook", mutate: func(d *ComicData) { d.Webhooks = []string{"https://ok.example.com", "nope"} }, field: "webhooks[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validComicData()
			tt.mutate(&data)

			_, err := NewComicConfig(data)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfig))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)

			var ce *ComicError
			require.True(t, errors.As(err, &ce))
			assert.Empty(t, ce.ComicName)
		})
	}
}

func TestNewComicConfig_ReportsEveryProblem(t *testing.T) {
	_, err := NewComicConfig(ComicData{})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "'name'")
	assert.Contains(t, msg, "'imageSelector'")
	assert.Contains(t, msg, "'feedUrl'")
}

func TestComicConfig_Immutable(t *testing.T) {
	data := validComicData()
	comic, err := NewComicConfig(data)
	require.NoError(t, err)

	data.Webhooks[0] = "https://evil.example.com"
	hooks := comic.Webhooks()
	hooks[1] = "https://evil.example.com"

	assert.Equal(t, []string{"https://hooks.example.com/1", "https://hooks.example.com/2"}, comic.Webhooks())
}

func TestParseComicConfig(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Test Comic",
		"imageSelector": "#comic img",
		"feedUrl": "https://comic.example.com/rss.xml",
		"webhooks": ["https://hooks.example.com/1"]
	}`)

	comic, err := ParseComicConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "Test Comic", comic.Name())
	assert.Equal(t, []string{"https://hooks.example.com/1"}, comic.Webhooks())
}

func TestParseComicConfig_LegacyKeys(t *testing.T) {
	raw := json.RawMessage(`{
		"name": "Legacy",
		"imageSelector": "#comic img",
		"altSelector": "#comic img",
		"rssUrl": "https://legacy.example.com/feed",
		"webhookUrls": ["https://hooks.example.com/legacy"]
	}`)

	comic, err := ParseComicConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "#comic img", comic.AltTextSelector())
	assert.Equal(t, "https://legacy.example.com/feed", comic.FeedURL())
	assert.Equal(t, []string{"https://hooks.example.com/legacy"}, comic.Webhooks())
}

func TestParseComicConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "string record", raw: `"comic"`},
		{name: "array record", raw: `[]`},
		{name: "null record", raw: `null`},
		{name: "empty record", raw: ``},
		{name: "wrong field type", raw: `{"name": 5}`},
		{name: "missing name", raw: `{"imageSelector": "img", "feedUrl": "https://a.example.com/rss"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComicConfig(json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfig))
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "https://a.example.com/rss|https://hooks.example.com/1",
		CacheKey("https://a.example.com/rss", "https://hooks.example.com/1"))

	comic, err := NewComicConfig(validComicData())
	require.NoError(t, err)
	assert.Equal(t, "https://comic.example.com/rss.xml|https://hooks.example.com/2",
		comic.CacheKey("https://hooks.example.com/2"))
	assert.NotEqual(t, comic.CacheKey("https://hooks.example.com/1"), comic.CacheKey("https://hooks.example.com/2"))

	feed, hook := SplitCacheKey(comic.CacheKey("https://hooks.example.com/2"))
	assert.Equal(t, "https://comic.example.com/rss.xml", feed)
	assert.Equal(t, "https://hooks.example.com/2", hook)

	feed, hook = SplitCacheKey("orphan")
	assert.Equal(t, "orphan", feed)
	assert.Empty(t, hook)
}
