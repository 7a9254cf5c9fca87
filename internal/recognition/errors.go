package recognition

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// FailureKind classifies a recognition failure for retry handling.
type FailureKind int

const (
	// FailurePermanent is any failure that retrying cannot fix
	FailurePermanent FailureKind = iota
	// FailureQuota is a rate-limit or resource-exhaustion signal from the
	// external model; retried with backoff
	FailureQuota
	// FailureMalformed is an unparsable or mis-shaped model response;
	// retried, exhausting retries yields an empty result
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureQuota:
		return "quota"
	case FailureMalformed:
		return "malformed"
	default:
		return "permanent"
	}
}

// Error is a recognition failure carrying its retry classification.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("recognition failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps err with its failure kind. Quota failures are detected from
// the Google API error shape (HTTP 429/503) or a RESOURCE_EXHAUSTED message;
// anything not explicitly recognized is permanent.
func Classify(err error) *Error {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code == 503 {
			return &Error{Kind: FailureQuota, Err: err}
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") {
		return &Error{Kind: FailureQuota, Err: err}
	}

	return &Error{Kind: FailurePermanent, Err: err}
}
