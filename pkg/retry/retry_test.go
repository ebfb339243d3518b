package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type flaggedError struct {
	msg       string
	retryable bool
}

func (e *flaggedError) Error() string     { return e.msg }
func (e *flaggedError) IsRetryable() bool { return e.retryable }

func TestDoWithResultSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoWithResultRetriesTransientFailures(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &flaggedError{msg: "provider hiccup", retryable: true}
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestDoWithResultStopsOnPermanentError(t *testing.T) {
	permanent := &flaggedError{msg: "authentication failed", retryable: false}

	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		return 0, permanent
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, permanent, err)
}

func TestDoWithResultExhaustsRetries(t *testing.T) {
	transient := &flaggedError{msg: "timeout", retryable: true}

	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		return 0, transient
	})

	// Initial attempt plus MaxRetries.
	assert.Equal(t, 4, calls)
	assert.Equal(t, transient, err)
}

func TestDoWithResultRespectsContextCancellation(t *testing.T) {
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		_, err := DoWithResult(ctx, cfg, func() (int, error) {
			calls++
			return 0, &flaggedError{msg: "timeout", retryable: true}
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not abort on context cancellation")
	}
}

func TestDoWithResultNilConfigUsesDefaults(t *testing.T) {
	result, err := DoWithResult(context.Background(), nil, func() (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestDo(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls == 1 {
			return &flaggedError{msg: "flaky", retryable: true}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIsRetryable(t *testing.T) {
	t.Run("explicit flag wins over message patterns", func(t *testing.T) {
		// Message mentions a timeout, but the error declares itself permanent.
		assert.False(t, IsRetryable(&flaggedError{msg: "timeout", retryable: false}))
		assert.True(t, IsRetryable(&flaggedError{msg: "nothing special", retryable: true}))
	})

	t.Run("pattern matching for plain errors", func(t *testing.T) {
		assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
		assert.True(t, IsRetryable(errors.New("i/o timeout")))
		assert.True(t, IsRetryable(errors.New("HTTP 429 Too Many Requests")))
		assert.True(t, IsRetryable(errors.New("service unavailable")))
		assert.False(t, IsRetryable(errors.New("invalid request payload")))
	})

	t.Run("nil is not retryable", func(t *testing.T) {
		assert.False(t, IsRetryable(nil))
	})
}
