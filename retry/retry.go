// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Do retries an operation with exponential backoff.
//
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: delay before the second attempt
// backoffFactor: multiplier applied to the delay after each failure (must be >= 1)
//
// The delay before attempt k is baseDelay * backoffFactor^(k-2).
// Errors wrapped with Fatal abort immediately without consuming the retry
// budget. When all attempts fail, Do returns an *ExhaustedError wrapping
// the last error.
func Do(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration, backoffFactor float64) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if backoffFactor < 1 {
		return ErrInvalidBackoffFactor
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		if IsFatal(lastErr) {
			slog.Debug("operation failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return lastErr
		}

		if hint := transientHint(lastErr); hint != "" {
			slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "delay", delay, "hint", hint, "error", lastErr)
		} else {
			slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "delay", delay, "error", lastErr)
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}

		delay = time.Duration(float64(delay) * backoffFactor)
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// transientHint recognizes common transient failure shapes in error text.
// The hint only affects logging; all non-fatal errors are retried the same way.
func transientHint(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "rate limit"
	case strings.Contains(msg, "server error") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503"):
		return "server error"
	}
	return ""
}

// IsFatal reports whether err is marked non-retryable.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
