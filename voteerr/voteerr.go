// Package voteerr holds the sentinel errors that carry the
// error-handling philosophy of spec.md section 7 across package
// boundaries: callers branch on these with errors.Is rather than on
// HTTP status codes or ack/reject decisions computed ad hoc.
package voteerr

import "errors"

var (
	// ErrAuthInvalid covers a missing, malformed, expired or
	// bad-signature token at ingest. Maps to HTTP 401.
	ErrAuthInvalid = errors.New("voteerr: invalid authentication")

	// ErrRateLimited is what ingest reports when ratelimit.Limiter.Allow
	// denies a principal that has exceeded its window. Maps to HTTP 429.
	// Never used on a Redis outage — the limiter fails open instead.
	ErrRateLimited = errors.New("voteerr: rate limit exceeded")

	// ErrPublishUnavailable covers a durable-queue publish failure
	// (broker unreachable or every publish attempt failed). Ingest never acks
	// or responds success without a durable publish; maps to HTTP 503.
	ErrPublishUnavailable = errors.New("voteerr: vote queue unavailable")

	// ErrBadMessage covers a delivery that fails decode or structural
	// validation in the consumer. Non-transient: reject without
	// requeue, straight to the DLQ.
	ErrBadMessage = errors.New("voteerr: malformed vote message")

	// ErrDBTransient covers a materializer database error worth
	// retrying (connection reset, deadlock, timeout).
	ErrDBTransient = errors.New("voteerr: transient database error")

	// ErrDBPersistent covers a materializer database error that will
	// not succeed on retry (constraint violation other than the
	// expected duplicate-vote conflict, schema mismatch). Non-transient:
	// reject without requeue, straight to the DLQ.
	ErrDBPersistent = errors.New("voteerr: persistent database error")

	// ErrCounterUnavailable covers a Redis outage encountered while
	// incrementing or reading vote counters. The materializer logs and
	// continues (fail-soft, counters are advisory); the results
	// service surfaces this as a 503 only when it has no count source
	// at all.
	ErrCounterUnavailable = errors.New("voteerr: counter store unavailable")
)
