package notifier

import (
	"context"
	"log/slog"

	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/usecase/notify"
)

// DryRunSender is a notify.Sender that logs deliveries instead of posting them.
// Every delivery succeeds, so the cache is still updated as if it had been sent.
type DryRunSender struct {
	logger *slog.Logger
}

// NewDryRunSender creates a new DryRunSender. A nil logger uses slog.Default.
func NewDryRunSender(logger *slog.Logger) *DryRunSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunSender{logger: logger}
}

// Send logs the delivery and returns nil.
func (n *DryRunSender) Send(ctx context.Context, webhookURL string, embeds []notify.Embed) error {
	title := ""
	if len(embeds) > 0 {
		title = embeds[0].Title
	}
	n.logger.InfoContext(ctx, "dry run: webhook delivery skipped",
		slog.String("webhook", sanitize.String(webhookURL)),
		slog.String("title", title),
		slog.Int("embeds", len(embeds)))
	return nil
}
