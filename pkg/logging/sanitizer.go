package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxMessageLogLength is the maximum length of a user utterance to log.
	MaxMessageLogLength = 120
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Pattern to match bearer tokens
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)
)

// TruncateMessage shortens a user utterance for log output. Utterances are
// free text from end users; full content never belongs in logs.
func TruncateMessage(msg string) string {
	return Truncate(msg, MaxMessageLogLength)
}

// Truncate shortens s to at most maxLen runes, appending an ellipsis marker
// when content was cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "..."
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error from provider or database operations.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)

	return sanitized
}
