package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"kind":       {},
	"op":         {},
	"height":     {},
	"content_id": {},
	"component":  {},
}

// IsAllowlisted reports whether key is exempt from redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns an attribute that redacts value unless key is
// allowlisted. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN strips credentials from a database DSN while keeping the host and
// database visible. Key/value DSNs and file paths without credentials are
// returned unchanged.
func MaskDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return trimmed
	}
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Scheme != "" && parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
		}
		return parsed.String()
	}
	if strings.Contains(strings.ToLower(trimmed), "password=") {
		fields := strings.Fields(trimmed)
		for i, field := range fields {
			if strings.HasPrefix(strings.ToLower(field), "password=") {
				fields[i] = "password=" + RedactedValue
			}
		}
		return strings.Join(fields, " ")
	}
	return trimmed
}
