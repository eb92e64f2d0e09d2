package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Kind discriminates the stage of the comic pipeline that produced a ComicError.
type Kind string

const (
	// KindConfig marks a malformed index record. It is raised before a comic exists,
	// so errors of this kind carry no comic name.
	KindConfig Kind = "config"

	// KindFeed marks a feed fetch, parse or freshness-resolution failure.
	KindFeed Kind = "feed"

	// KindPage marks a page fetch or extraction failure, including a missing image.
	KindPage Kind = "page"

	// KindNotifier marks a notification failure: no targets configured,
	// a webhook delivery failure, or a failed cache write after delivery.
	KindNotifier Kind = "notifier"
)

// ComicError is the single error type produced by the comic sync pipeline.
// The Kind field selects the variant; callers match on it with IsKind
// instead of relying on distinct Go types.
//
// Status, Body and URL are populated for HTTP failures only.
type ComicError struct {
	Kind      Kind
	ComicName string
	Message   string

	// URL is the request target for HTTP failures.
	URL string
	// Status is the HTTP status code for non-success responses (0 otherwise).
	Status int
	// Body is the raw response body for non-success responses.
	Body string

	// Err is the underlying cause, if any.
	Err error
}

// Error renders "<comic>: <message>", followed by the cause when present.
// Config errors have no comic and render the message alone.
func (e *ComicError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ComicName == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.ComicName, msg)
}

// Unwrap returns the underlying cause.
func (e *ComicError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a KindConfig error.
func NewConfigError(message string, err error) *ComicError {
	return &ComicError{Kind: KindConfig, Message: message, Err: err}
}

// NewFeedError creates a KindFeed error for the named comic.
func NewFeedError(comicName, message string) *ComicError {
	return &ComicError{Kind: KindFeed, ComicName: comicName, Message: message}
}

// NewPageError creates a KindPage error for the named comic.
func NewPageError(comicName, message string) *ComicError {
	return &ComicError{Kind: KindPage, ComicName: comicName, Message: message}
}

// NewNotifierError creates a KindNotifier error for the named comic.
func NewNotifierError(comicName, message string) *ComicError {
	return &ComicError{Kind: KindNotifier, ComicName: comicName, Message: message}
}

// WithCause sets the underlying cause and returns the receiver.
func (e *ComicError) WithCause(err error) *ComicError {
	e.Err = err
	return e
}

// WithResponse records the failed HTTP exchange and returns the receiver.
func (e *ComicError) WithResponse(url string, status int, body string) *ComicError {
	e.URL = url
	e.Status = status
	e.Body = body
	return e
}

// IsKind reports whether err, or any error it wraps, is a ComicError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ComicError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}

// KindOf returns the kind of the first ComicError in err's chain,
// or an empty Kind when err is not a ComicError.
func KindOf(err error) Kind {
	var ce *ComicError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
