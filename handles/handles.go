// Package handles validates and canonicalizes social media handles.
package handles

import (
	"net/url"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{1,15}$`)

// Normalize turns arbitrary user input (bare handle, @handle, profile URL)
// into a canonical lowercase handle. The second return value is false when
// the input cannot be parsed into an allowed username; there is no
// best-effort guessing.
func Normalize(input string) (string, bool) {
	handle := strings.TrimSpace(input)
	if handle == "" {
		return "", false
	}

	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		if u, err := url.Parse(handle); err == nil {
			parts := splitPath(u.Path)
			if len(parts) > 0 {
				handle = parts[len(parts)-1]
			} else {
				handle = ""
			}
		}
	} else if strings.HasPrefix(handle, "x.com/") || strings.HasPrefix(handle, "twitter.com/") {
		parts := splitPath(handle)
		if len(parts) > 1 {
			handle = parts[len(parts)-1]
		} else {
			handle = ""
		}
	}

	handle = strings.TrimPrefix(handle, "@")
	if i := strings.IndexAny(handle, "/?#"); i >= 0 {
		handle = handle[:i]
	}

	handle = strings.ToLower(strings.TrimSpace(handle))
	if !usernameRegex.MatchString(handle) {
		return "", false
	}
	return handle, true
}

// Format prefixes a canonical handle with a single @. Idempotent.
func Format(handle string) string {
	if strings.HasPrefix(handle, "@") {
		return handle
	}
	return "@" + handle
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
