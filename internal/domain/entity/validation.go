package entity

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// ValidateURL validates that rawURL is a well-formed absolute http(s) URL.
// The field name is used in the returned ValidationError.
//
// Unlike an API-facing validator this does not resolve the host: comic feeds
// and webhooks are operator-configured, and resolution happens at fetch time.
func ValidateURL(field, rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: field, Message: "URL is required"}
	}

	// DoS protection: enforce maximum URL length
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: field, Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: field, Message: "URL must have a valid host"}
	}

	return nil
}

// IsAbsoluteURL reports whether rawURL passes ValidateURL.
func IsAbsoluteURL(rawURL string) bool {
	return ValidateURL("url", rawURL) == nil
}

// ValidateSelector checks that sel is a non-empty CSS selector that cascadia can compile.
func ValidateSelector(field, sel string) error {
	if strings.TrimSpace(sel) == "" {
		return &ValidationError{Field: field, Message: "selector must not be empty"}
	}
	if _, err := cascadia.Compile(sel); err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid selector %q: %v", sel, err)}
	}
	return nil
}
