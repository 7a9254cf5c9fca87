package recognition

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// ErrDeferred signals that an input exhausted its quota retries and was
// parked in the pending-review store. The batch keeps going; the caller
// records the deferral instead of failing.
var ErrDeferred = errors.New("input deferred to pending review")

// Retryer wraps recognizer calls with the retry policy: transient-quota
// failures get exponential backoff with jitter, malformed responses get the
// same bounded retry loop, anything else surfaces immediately.
type Retryer struct {
	maxAttempts int
	baseDelay   time.Duration
	pending     *PendingStore

	// injectable for tests
	sleep  func(time.Duration)
	jitter func() float64
}

// NewRetryer creates a Retryer with the default bounds: 3 attempts, 2s base
// delay doubling per attempt, 0-30% jitter. pending may be nil, in which
// case exhausted quota failures are surfaced as ErrDeferred without a
// pending-review entry.
func NewRetryer(pending *PendingStore) *Retryer {
	return &Retryer{
		maxAttempts: 3,
		baseDelay:   2 * time.Second,
		pending:     pending,
		sleep:       time.Sleep,
		jitter:      rand.Float64,
	}
}

// NewRetryerWithBackoff creates a Retryer with explicit retry bounds, for
// callers that cannot afford the default multi-second delays.
func NewRetryerWithBackoff(pending *PendingStore, maxAttempts int, baseDelay time.Duration) *Retryer {
	r := NewRetryer(pending)
	r.maxAttempts = maxAttempts
	r.baseDelay = baseDelay
	return r
}

// Do invokes fn until it succeeds or the retry budget runs out. fingerprint
// and imageData identify the input for pending-review deferral.
func (r *Retryer) Do(fingerprint string, imageData []byte, fn func() (*Result, error)) (*Result, error) {
	var lastErr *Error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = Classify(err)
		if lastErr.Kind == FailurePermanent {
			return nil, lastErr
		}

		if attempt < r.maxAttempts {
			delay := r.backoff(attempt)
			slog.Warn("recognition attempt failed, retrying",
				"fingerprint", fingerprint,
				"attempt", attempt,
				"kind", lastErr.Kind.String(),
				"delay", delay,
				"error", lastErr.Err)
			r.sleep(delay)
		}
	}

	if lastErr.Kind == FailureQuota {
		if r.pending != nil && len(imageData) > 0 {
			if err := r.pending.Save(fingerprint, imageData, lastErr.Error()); err != nil {
				slog.Error("failed to save pending-review entry",
					"fingerprint", fingerprint, "error", err)
			}
		}
		slog.Warn("quota retries exhausted, input deferred",
			"fingerprint", fingerprint, "attempts", r.maxAttempts)
		return nil, ErrDeferred
	}

	// Malformed responses all the way through: the input counts as
	// unrecognized, the batch continues.
	slog.Warn("unparsable model responses, input unrecognized",
		"fingerprint", fingerprint, "attempts", r.maxAttempts, "error", lastErr.Err)
	return &Result{Source: "unrecognized"}, nil
}

// backoff computes the delay before the next attempt: baseDelay doubled per
// attempt plus up to 30% random jitter.
func (r *Retryer) backoff(attempt int) time.Duration {
	delay := r.baseDelay << (attempt - 1)
	return delay + time.Duration(r.jitter()*0.3*float64(delay))
}
