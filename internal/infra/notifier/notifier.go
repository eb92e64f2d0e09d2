// Package notifier provides webhook senders used to deliver comic updates.
//
// The package includes a Discord-compatible webhook sender and a dry-run
// sender that only logs, for when deliveries are disabled.
package notifier

import "comic-notifier/internal/usecase/notify"

var (
	_ notify.Sender = (*WebhookSender)(nil)
	_ notify.Sender = (*DryRunSender)(nil)

	_ notify.StatusError = (*DeliveryError)(nil)
)
