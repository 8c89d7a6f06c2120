package core

import (
	"regexp"
	"strings"
)

const maxRedactedLen = 512

type redaction struct {
	re   *regexp.Regexp
	repl string
}

// Ordered from most to least specific.
var redactions = []redaction{
	{regexp.MustCompile(`\b(eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+)\b`), "[JWT_REDACTED]"},
	{regexp.MustCompile(`(?i)((postgres|postgresql|redis|rediss|amqp|https?)://)[^@\s]+@`), "$1[REDACTED]@"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-\._~\+\/]+=*`), "$1[REDACTED]"},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|authorization)\s*[:=]\s*["']?[^"'\s]+["']?`),
		"$1=[REDACTED]",
	},
	{regexp.MustCompile(`(?i)(sha256=)[0-9a-f]{16,}`), "$1[REDACTED]"},
}

// RedactString scrubs credential shapes from messages that end up in audit rows
// and truncates them to a bounded length.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	if len(s) > maxRedactedLen {
		s = s[:maxRedactedLen] + "..."
	}
	return s
}

// RedactError is RedactString applied to err.Error(); nil yields "".
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
