package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Provider phrasings that signal the conversation no longer fits the
// model's context window.
var overflowMarkers = []string{
	"too many tokens",
	"too long",
	"input is too long",
}

// IsOverflow reports whether the error is a context-overflow signal.
// Callers respond by force-truncating the conversation, not by backing
// off.
func IsOverflow(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range overflowMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var throttleCodes = map[string]bool{
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
}

// IsThrottle reports whether the error is a rate-limit signal.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttleCodes[apiErr.ErrorCode()] {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate exceeded")
}

var transientCodes = map[string]bool{
	"ModelTimeoutException":       true,
	"ServiceUnavailableException": true,
	"InternalServerException":     true,
	"ModelNotReadyException":      true,
}

// IsTransient reports whether the error is worth retrying with backoff.
// Throttles count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsThrottle(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientCodes[apiErr.ErrorCode()] {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "service unavailable")
}
