// Package redact scrubs PII from transcripts before they reach logs or
// on-disk artifacts. Redaction is toggled process-wide with SetEnabled.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

var enabled atomic.Bool

// rules pair each pattern with its replacement token.
var rules = []struct {
	re    *regexp.Regexp
	token string
}{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles PII redaction for logged transcripts.
func SetEnabled(v bool) { enabled.Store(v) }

// Enabled reports whether redaction is active.
func Enabled() bool { return enabled.Load() }

// Text redacts emails and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := in
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.token)
	}
	return out
}

// Transcript prepares recognized or translated speech for logging:
// applies Text and truncates to max runes so whole utterances never
// land in logs.
func Transcript(in string, max int) string {
	out := Text(in)
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[:max]) + "…"
}
