// Package sanitize prepares untrusted or secret-bearing text for logs and error messages.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxExcerptBytes bounds the response body excerpt embedded in error messages.
const MaxExcerptBytes = 512

var (
	// Discord/Slack webhook URLs carry their credential in the path.
	// 注意: より具体的なパターンから適用する
	discordWebhookPattern = regexp.MustCompile(`(/api/webhooks/\d+/)[A-Za-z0-9_\-]+`)
	slackWebhookPattern   = regexp.MustCompile(`(hooks\.slack\.com/services/[A-Z0-9]+/[A-Z0-9]+/)[A-Za-z0-9]+`)

	// データベースパスワードパターン（DSN内）
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@/\s]+)@`)
)

var (
	stripPolicy     *bluemonday.Policy
	stripPolicyOnce sync.Once
)

// Error returns err's message with webhook tokens and DSN passwords masked.
// A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// String masks webhook tokens and DSN passwords in s.
func String(s string) string {
	s = discordWebhookPattern.ReplaceAllString(s, "${1}****")
	s = slackWebhookPattern.ReplaceAllString(s, "${1}****")
	s = dbPasswordPattern.ReplaceAllString(s, "://$1:****@")
	return s
}

// BodyExcerpt turns a (possibly HTML) response body into a short single-line
// plain-text excerpt: markup is stripped, entities decoded, whitespace collapsed,
// and the result truncated to MaxExcerptBytes on a rune boundary.
func BodyExcerpt(body []byte) string {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
		stripPolicy.AddSpaceWhenStrippingTag(true)
	})

	text := stripPolicy.SanitizeBytes(body)
	plain := html.UnescapeString(string(text))
	plain = strings.Join(strings.Fields(plain), " ")
	return truncate(plain, MaxExcerptBytes, "...")
}

// truncate shortens s to at most maxBytes, appending suffix when it cuts.
func truncate(s string, maxBytes int, suffix string) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes - len(suffix)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
