package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/usecase/notify"
)

// DiscordConfig contains configuration for Discord-compatible webhook deliveries.
type DiscordConfig struct {
	// Username overrides the webhook's display name. Empty keeps the webhook default.
	Username string

	// AvatarURL overrides the webhook's avatar. Empty omits the field.
	AvatarURL string

	// Timeout is the HTTP request timeout for one delivery
	Timeout time.Duration
}

// WebhookSender posts comic updates to Discord-compatible webhooks.
type WebhookSender struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewWebhookSender creates a new WebhookSender with the specified configuration.
//
// The sender is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 0.5 requests/second with burst of 3 per webhook
//     (Discord Webhook limit: 30 requests per minute = 0.5 req/s)
func NewWebhookSender(config DiscordConfig) *WebhookSender {
	return &WebhookSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(0.5, 3), // 0.5 req/s (30 req/min), burst of 3
	}
}

// WebhookPayload represents the JSON payload sent to a webhook.
type WebhookPayload struct {
	Embeds    []DiscordEmbed `json:"embeds"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatarURL,omitempty"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Author      *DiscordEmbedAuthor `json:"author,omitempty"`
	Image       *DiscordEmbedImage  `json:"image,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
}

// DiscordEmbedAuthor represents the author line of a Discord embed.
type DiscordEmbedAuthor struct {
	Name string `json:"name"`
}

// DiscordEmbedImage represents the image of a Discord embed.
type DiscordEmbedImage struct {
	URL string `json:"url"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxAuthorLength      = 256
	maxFooterLength      = 2048
	truncationSuffix     = "..."

	// maxResponseBodySize caps how much of an error response is kept.
	maxResponseBodySize = 64 * 1024
)

// buildPayload converts embeds into the webhook wire format, truncating
// text fields to the Discord limits.
func (d *WebhookSender) buildPayload(embeds []notify.Embed) WebhookPayload {
	out := make([]DiscordEmbed, len(embeds))
	for i, e := range embeds {
		de := DiscordEmbed{
			Title:       truncateSummary(e.Title, maxTitleLength, truncationSuffix),
			Description: truncateSummary(e.Description, maxDescriptionLength, truncationSuffix),
			URL:         e.URL,
		}
		if e.Author != "" {
			de.Author = &DiscordEmbedAuthor{Name: truncateSummary(e.Author, maxAuthorLength, truncationSuffix)}
		}
		if e.ImageURL != "" {
			de.Image = &DiscordEmbedImage{URL: e.ImageURL}
		}
		if e.Footer != "" {
			de.Footer = &DiscordEmbedFooter{Text: truncateSummary(e.Footer, maxFooterLength, truncationSuffix)}
		}
		out[i] = de
	}

	return WebhookPayload{
		Embeds:    out,
		Username:  d.config.Username,
		AvatarURL: d.config.AvatarURL,
	}
}

// Send posts embeds to webhookURL once.
//
// Returns:
//   - nil: Request succeeded (2xx status)
//   - *DeliveryError: The webhook answered with a non-2xx status
//   - error: Rate limiter wait, request construction or transport failure
func (d *WebhookSender) Send(ctx context.Context, webhookURL string, embeds []notify.Embed) error {
	if err := d.rateLimiter.Allow(ctx, webhookURL); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	jsonData, err := json.Marshal(d.buildPayload(embeds))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Read response body for error messages
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.DebugContext(ctx, "webhook delivery succeeded",
			slog.String("webhook", sanitize.String(webhookURL)),
			slog.Int("status", resp.StatusCode))
		return nil
	}

	return &DeliveryError{
		URL:    webhookURL,
		Status: resp.StatusCode,
		Body:   string(body),
	}
}
