package entity

import (
	"errors"
	"strings"
)

// ErrMissingImage is returned by NewPageSnapshot when no image URI was found.
var ErrMissingImage = errors.New("could not find image URI")

// PageSnapshot is the content extracted from one comic page.
// Pages of one sync form an ordered chain linked by NextPageURL.
type PageSnapshot struct {
	ImageURI    string
	AltText     string
	NextPageURL string
}

// HasNext reports whether the page links to a following page.
func (p PageSnapshot) HasNext() bool {
	return p.NextPageURL != ""
}

// NewPageSnapshot assembles a PageSnapshot from scanned values.
//
// The image URI is required. Alt text is trimmed and treated as absent when empty.
// A next-page URL that is not a well-formed absolute URL is dropped silently
// rather than failing the whole page.
func NewPageSnapshot(imageURI, altText, nextPageURL string) (*PageSnapshot, error) {
	imageURI = strings.TrimSpace(imageURI)
	if imageURI == "" {
		return nil, ErrMissingImage
	}

	next := strings.TrimSpace(nextPageURL)
	if next != "" && !IsAbsoluteURL(next) {
		next = ""
	}

	return &PageSnapshot{
		ImageURI:    imageURI,
		AltText:     strings.TrimSpace(altText),
		NextPageURL: next,
	}, nil
}
