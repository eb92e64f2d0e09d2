package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"comic-notifier/internal/usecase/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbeds() []notify.Embed {
	return []notify.Embed{
		{
			Title:       "Page 42",
			Author:      "Test Feed",
			URL:         "https://comic.example.com/42",
			ImageURL:    "https://comic.example.com/42.png",
			Description: "Alt text: ||a joke||",
			Footer:      "Page 1",
		},
		{
			ImageURL: "https://comic.example.com/43.png",
			Footer:   "Page 2",
		},
	}
}

func TestWebhookSender_buildPayload(t *testing.T) {
	t.Run("TC-1: should map every embed field", func(t *testing.T) {
		sender := NewWebhookSender(DiscordConfig{Username: "Comics", AvatarURL: "https://example.com/a.png"})

		payload := sender.buildPayload(testEmbeds())

		require.Len(t, payload.Embeds, 2)
		first := payload.Embeds[0]
		assert.Equal(t, "Page 42", first.Title)
		assert.Equal(t, "https://comic.example.com/42", first.URL)
		assert.Equal(t, "Alt text: ||a joke||", first.Description)
		require.NotNil(t, first.Author)
		assert.Equal(t, "Test Feed", first.Author.Name)
		require.NotNil(t, first.Image)
		assert.Equal(t, "https://comic.example.com/42.png", first.Image.URL)
		require.NotNil(t, first.Footer)
		assert.Equal(t, "Page 1", first.Footer.Text)

		second := payload.Embeds[1]
		assert.Empty(t, second.Title)
		assert.Nil(t, second.Author)
		assert.Equal(t, "https://comic.example.com/43.png", second.Image.URL)

		assert.Equal(t, "Comics", payload.Username)
		assert.Equal(t, "https://example.com/a.png", payload.AvatarURL)
	})

	t.Run("TC-2: should truncate long text fields", func(t *testing.T) {
		sender := NewWebhookSender(DiscordConfig{})

		payload := sender.buildPayload([]notify.Embed{{
			Title:       strings.Repeat("t", 300),
			Description: strings.Repeat("d", 5000),
		}})

		embed := payload.Embeds[0]
		assert.Len(t, embed.Title, maxTitleLength)
		assert.True(t, strings.HasSuffix(embed.Title, truncationSuffix))
		assert.Len(t, embed.Description, maxDescriptionLength)
		assert.True(t, strings.HasSuffix(embed.Description, truncationSuffix))
	})

	t.Run("TC-3: should omit avatar when not configured", func(t *testing.T) {
		sender := NewWebhookSender(DiscordConfig{Username: "Comics"})

		data, err := json.Marshal(sender.buildPayload(testEmbeds()))
		require.NoError(t, err)

		assert.NotContains(t, string(data), "avatarURL")
		assert.Contains(t, string(data), `"username":"Comics"`)
	})
}

func TestWebhookSender_Send(t *testing.T) {
	t.Run("TC-1: should post JSON embeds and succeed on 2xx", func(t *testing.T) {
		var got WebhookPayload
		var contentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			contentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		sender := NewWebhookSender(DiscordConfig{Username: "Comics", Timeout: 5 * time.Second})

		err := sender.Send(context.Background(), server.URL, testEmbeds())

		require.NoError(t, err)
		assert.Equal(t, "application/json", contentType)
		assert.Equal(t, "Comics", got.Username)
		require.Len(t, got.Embeds, 2)
		assert.Equal(t, "Page 42", got.Embeds[0].Title)
	})

	t.Run("TC-2: should return DeliveryError with status and body on non-2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid Form Body"}`))
		}))
		defer server.Close()

		sender := NewWebhookSender(DiscordConfig{Timeout: 5 * time.Second})

		err := sender.Send(context.Background(), server.URL, testEmbeds())

		var de *DeliveryError
		require.True(t, errors.As(err, &de), "expected *DeliveryError, got %T", err)
		assert.Equal(t, http.StatusBadRequest, de.StatusCode())
		assert.Equal(t, `{"message":"Invalid Form Body"}`, de.ResponseBody())

		var se notify.StatusError
		assert.True(t, errors.As(err, &se))
	})

	t.Run("TC-3: should not retry rate-limited or server errors", func(t *testing.T) {
		for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
			}))

			sender := NewWebhookSender(DiscordConfig{Timeout: 5 * time.Second})
			err := sender.Send(context.Background(), server.URL, testEmbeds())
			server.Close()

			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load(), "status %d must be attempted once", status)
		}
	})

	t.Run("TC-4: should fail on transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		sender := NewWebhookSender(DiscordConfig{Timeout: time.Second})

		err := sender.Send(context.Background(), url, testEmbeds())

		require.Error(t, err)
		var de *DeliveryError
		assert.False(t, errors.As(err, &de))
	})

	t.Run("TC-5: should respect context cancellation", func(t *testing.T) {
		sender := NewWebhookSender(DiscordConfig{Timeout: time.Second})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := sender.Send(ctx, "http://127.0.0.1:1/hook", testEmbeds())

		require.Error(t, err)
	})
}

func TestDeliveryError_MasksToken(t *testing.T) {
	err := &DeliveryError{
		URL:    "https://discord.com/api/webhooks/123/secret-token",
		Status: http.StatusNotFound,
		Body:   "Unknown Webhook",
	}

	assert.NotContains(t, err.Error(), "secret-token")
	assert.Contains(t, err.Error(), "404")
}

func TestTruncateSummary(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		max    int
		expect string
	}{
		{"short text unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncated with suffix", "hello world", 8, "hello..."},
		{"multi-byte runes kept whole", "漫画のページです", 5, "漫画..."},
		{"suffix longer than max", "hello", 2, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, truncateSummary(tt.text, tt.max, truncationSuffix))
		})
	}
}
