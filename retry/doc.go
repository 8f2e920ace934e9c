// Package retry provides exponential-backoff retries for remote calls.
//
// Do runs an operation up to maxAttempts times, sleeping between attempts
// with a configurable backoff factor and honoring context cancellation.
// Callers distinguish two failure classes: errors wrapped with Fatal are
// returned immediately (malformed input cannot succeed on retry), while
// everything else is retried until the budget runs out, at which point Do
// returns an *ExhaustedError wrapping the last failure.
package retry
