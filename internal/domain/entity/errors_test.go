package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "simple validation error",
			field:    "feedUrl",
			message:  "URL is required",
			expected: "validation error on field 'feedUrl': URL is required",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
		{
			name:     "empty message",
			field:    "name",
			message:  "",
			expected: "validation error on field 'name': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestComicError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ComicError
		expected string
	}{
		{
			name:     "feed error carries comic name",
			err:      NewFeedError("xkcd", "no items in feed"),
			expected: "xkcd: no items in feed",
		},
		{
			name:     "page error carries comic name",
			err:      NewPageError("xkcd", "could not find image URI"),
			expected: "xkcd: could not find image URI",
		},
		{
			name:     "notifier error carries comic name",
			err:      NewNotifierError("xkcd", "no webhook targets configured"),
			expected: "xkcd: no webhook targets configured",
		},
		{
			name:     "config error has no comic prefix",
			err:      NewConfigError("error parsing index item", nil),
			expected: "error parsing index item",
		},
		{
			name:     "cause is appended",
			err:      NewFeedError("xkcd", "could not parse feed").WithCause(errors.New("EOF")),
			expected: "xkcd: could not parse feed: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestComicError_Kinds(t *testing.T) {
	assert.Equal(t, KindConfig, NewConfigError("x", nil).Kind)
	assert.Equal(t, KindFeed, NewFeedError("c", "x").Kind)
	assert.Equal(t, KindPage, NewPageError("c", "x").Kind)
	assert.Equal(t, KindNotifier, NewNotifierError("c", "x").Kind)
}

func TestComicError_WithResponse(t *testing.T) {
	err := NewNotifierError("xkcd", "failed posting").
		WithResponse("https://hooks.example.com/1", 500, "boom")

	assert.Equal(t, "https://hooks.example.com/1", err.URL)
	assert.Equal(t, 500, err.Status)
	assert.Equal(t, "boom", err.Body)
}

func TestComicError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFeedError("xkcd", "fetch failed").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, NewFeedError("xkcd", "x").Unwrap())
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("processing: %w", NewPageError("xkcd", "could not find image URI"))

	assert.True(t, IsKind(wrapped, KindPage))
	assert.False(t, IsKind(wrapped, KindFeed))
	assert.False(t, IsKind(errors.New("plain"), KindPage))
	assert.False(t, IsKind(nil, KindPage))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotifier, KindOf(NewNotifierError("c", "x")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	var ce *ComicError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", NewConfigError("bad", nil)), &ce))
	assert.Equal(t, KindConfig, ce.Kind)
}
