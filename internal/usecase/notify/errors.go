package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrInvalidCacheValue indicates that a cached delivery time is not an RFC 3339 timestamp.
	// Keys holding such values are reported by ListCachedDates and treated as
	// absent by the planner, so the webhook is notified again.
	ErrInvalidCacheValue = errors.New("invalid cached date")

	// ErrNilFeed indicates that FromData was called without a feed snapshot.
	ErrNilFeed = errors.New("feed snapshot is required")

	// ErrNoPages indicates that FromData was called without any page snapshot.
	// The orchestrator always extracts at least the first page before planning.
	ErrNoPages = errors.New("at least one page is required")
)

// Messages used for NotifierError values.
const (
	msgNoTargetsConfigured = "no webhook targets configured"
	msgNoWebhooksToSend    = "no webhooks to send"
)
