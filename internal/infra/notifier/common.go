package notifier

import (
	"fmt"
	"unicode/utf8"

	"comic-notifier/internal/pkg/sanitize"
)

// DeliveryError represents a non-2xx response from a webhook.
// Deliveries are never retried, so every DeliveryError is final for the run.
type DeliveryError struct {
	URL    string
	Status int
	Body   string
}

// Error masks the webhook token since the message ends up in logs.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook %s responded with %d", sanitize.String(e.URL), e.Status)
}

// StatusCode returns the HTTP status of the failed delivery.
func (e *DeliveryError) StatusCode() int { return e.Status }

// ResponseBody returns the raw response body of the failed delivery.
func (e *DeliveryError) ResponseBody() string { return e.Body }

// truncateSummary truncates text to maxLength characters.
// If truncated, appends suffix to indicate continuation.
// Lengths are counted in runes so multi-byte text is never split mid-character.
func truncateSummary(text string, maxLength int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	// Reserve space for suffix
	truncateAt := maxLength - utf8.RuneCountInString(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}

	runes := []rune(text)
	return string(runes[:truncateAt]) + suffix
}
