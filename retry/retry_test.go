package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := Do(context.Background(), operation, 3, 10*time.Millisecond, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestDo_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := Do(context.Background(), operation, 5, 10*time.Millisecond, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestDo_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := Do(context.Background(), operation, 3, 10*time.Millisecond, 2)
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, expectedErr, "should wrap the original error")
}

func TestDo_FatalError(t *testing.T) {
	attempts := 0
	cause := errors.New("malformed input")
	operation := func() error {
		attempts++
		return Fatal(cause)
	}

	err := Do(context.Background(), operation, 5, 10*time.Millisecond, 2)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "fatal errors should not be retried")
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, cause)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted), "fatal errors are not exhaustion")
}

func TestDo_FatalNil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel() // Cancel after second attempt
		}
		return errors.New("error")
	}

	err := Do(ctx, operation, 10, 10*time.Millisecond, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "should return context.Canceled")
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestDo_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	operation := func() error {
		attempts++
		time.Sleep(30 * time.Millisecond) // Slow operation
		return errors.New("error")
	}

	err := Do(ctx, operation, 10, 10*time.Millisecond, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "should return context.DeadlineExceeded")
	assert.LessOrEqual(t, attempts, 3, "should stop when context times out")
}

func TestDo_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := Do(context.Background(), operation, 5, 10*time.Millisecond, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	// Verify exponential backoff (each delay should be roughly 2x the previous)
	require.Len(t, delays, 3, "should have 3 delays")

	// Allow some tolerance for timing variance
	assert.Greater(t, delays[1], delays[0], "second delay should be greater than first")
	assert.Greater(t, delays[2], delays[1], "third delay should be greater than second")
}

func TestDo_ConstantBackoff(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("error")
		}
		return nil
	}

	// Factor of 1 keeps the delay constant
	err := Do(context.Background(), operation, 5, time.Millisecond, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ZeroMaxAttempts(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("error")
	}

	err := Do(context.Background(), operation, 0, 10*time.Millisecond, 2)
	require.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Equal(t, 0, attempts, "should not attempt with maxAttempts=0")
}

func TestDo_NegativeMaxAttempts(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return errors.New("error")
	}

	err := Do(context.Background(), operation, -1, 10*time.Millisecond, 2)
	require.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Equal(t, 0, attempts, "should not attempt with negative maxAttempts")
}

func TestDo_InvalidBackoffFactor(t *testing.T) {
	err := Do(context.Background(), func() error { return nil }, 3, time.Millisecond, 0.5)
	require.ErrorIs(t, err, ErrInvalidBackoffFactor)
}

func TestTransientHint(t *testing.T) {
	assert.Equal(t, "timeout", transientHint(errors.New("request timeout")))
	assert.Equal(t, "timeout", transientHint(context.DeadlineExceeded))
	assert.Equal(t, "rate limit", transientHint(errors.New("429 Too Many Requests")))
	assert.Equal(t, "server error", transientHint(errors.New("HTTP 503 Service Unavailable")))
	assert.Equal(t, "", transientHint(errors.New("no such file")))
}
