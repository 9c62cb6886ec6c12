package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorKind classifies a cloud failure for retry and status-mapping
// decisions.
type ErrorKind int

const (
	// KindPermanent failures (access denied, malformed resource) are
	// surfaced verbatim and never retried.
	KindPermanent ErrorKind = iota

	// KindTransient failures (throttle, timeout, 5xx) may be retried.
	KindTransient

	// KindNotFound means the resource does not exist, possibly because
	// the cloud reaped it.
	KindNotFound
)

// Error wraps a provider error with its kind and the failing operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a not-found cloud error.
func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindNotFound
}

// IsTransient reports whether err is a retryable cloud error.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindTransient
}

// notFound builds a not-found error without a provider cause.
func notFound(op, what string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%s not found", what)}
}

var transientCodes = map[string]bool{
	"Throttling":                  true,
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"RequestLimitExceeded":        true,
	"RequestTimeout":              true,
	"ServiceUnavailable":          true,
	"ServiceUnavailableException": true,
	"InternalError":               true,
	"InternalFailure":             true,
	"InternalServerError":         true,
}

// classify wraps a provider error with a kind derived from its API error
// code. Context cancellation and deadline expiry count as transient so the
// reconciler retries them on the next tick.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindPermanent
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTransient
	default:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			switch {
			case transientCodes[code]:
				kind = KindTransient
			case strings.Contains(code, "NotFound"), strings.Contains(code, "NotFoundException"):
				kind = KindNotFound
			}
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
