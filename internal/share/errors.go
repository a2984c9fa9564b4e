package share

import (
	"fmt"
	"strings"
)

// ConfigError is returned when the instance or token is missing or malformed.
type ConfigError struct {
	Fields []string
	Reason string
}

func (e ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("mastodon not configured: %s", e.Reason)
	}
	return fmt.Sprintf("mastodon not configured (missing %s)", strings.Join(e.Fields, ", "))
}

// ValidationError captures local input problems such as a missing file.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// RemoteError is a non-2xx API response. The body is kept for debug logging
// and is not part of the message.
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
}
