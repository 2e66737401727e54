// Package hostname derives canonical, filesystem-safe device identifiers
// from captured configuration text.
package hostname

import (
	"strings"
)

const fallbackName = "device"

// Resolve extracts the device hostname from captured configuration text.
// It scans for a `hostname <name>` declaration, skipping comment lines, and
// falls back to the configured address when nothing usable is found. The
// result is always a non-empty, filesystem-safe string; Resolve never fails.
func Resolve(capturedText, fallback string) string {
	for _, line := range strings.Split(capturedText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) >= 2 && strings.EqualFold(fields[0], "hostname") {
			if name := Sanitize(fields[1]); name != fallbackName {
				return name
			}
		}
	}
	return Sanitize(fallback)
}

// Sanitize normalizes a raw identifier into a safe directory/file name
// component. Empty or fully-stripped input yields a fixed placeholder so
// callers always get a usable namespace key.
func Sanitize(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' || r == ' ':
			b.WriteRune('_')
		default:
			// Drop control characters and anything else exotic.
		}
	}
	// Leading dots would hide the namespace directory or escape upward.
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}
