package notify

import "context"

// Embed is one rich message block of a webhook post.
// Empty fields are omitted by senders.
type Embed struct {
	Title       string
	Description string
	URL         string
	Author      string
	ImageURL    string
	Footer      string
}

// Sender posts embeds to a single webhook URL.
//
// Implementations must treat any non-2xx response as a failure and return an
// error implementing StatusError so the status and body can be reported.
// Implementations must not retry.
type Sender interface {
	Send(ctx context.Context, webhookURL string, embeds []Embed) error
}

// StatusError is implemented by delivery errors caused by a non-success HTTP response.
type StatusError interface {
	error
	StatusCode() int
	ResponseBody() string
}
