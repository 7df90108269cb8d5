package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
// Non-email identifiers (e.g. "auto_assign") pass through unchanged.
func RedactEmail(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return s
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
