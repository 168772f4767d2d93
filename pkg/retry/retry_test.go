package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var calls int
	err := Do(func() error {
		calls++
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var calls int
	err := Do(func() error {
		calls++
		if calls < 3 {
			return &apierrors.Error{Type: apierrors.ErrorTypeNetwork, Message: "down"}
		}
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var calls int
	err := Do(func() error {
		calls++
		return &apierrors.Error{Type: apierrors.ErrorTypeServerError, Message: "boom", Code: 503}
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")

	var apiErr *apierrors.Error
	assert.ErrorAs(t, err, &apiErr, "the last error is wrapped")
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	var calls int
	err := Do(func() error {
		calls++
		return apierrors.Validation("bad input")
	}, testConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig()
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: time.Minute}

	var calls int
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			calls++
			return &apierrors.Error{Type: apierrors.ErrorTypeNetwork, Message: "down"}
		}, cfg)
	}()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDoCallsOnRetry(t *testing.T) {
	var attempts []int
	cfg := testConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Do(func() error {
		return &apierrors.Error{Type: apierrors.ErrorTypeNetwork, Message: "down"}
	}, cfg)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoWithResult(t *testing.T) {
	var calls int
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", &apierrors.Error{Type: apierrors.ErrorTypeNetwork, Message: "down"}
		}
		return "value", nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, "value", result)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))

	assert.True(t, DefaultRetryIf(&apierrors.Error{Type: apierrors.ErrorTypeNetwork}))
	assert.True(t, DefaultRetryIf(&apierrors.Error{Type: apierrors.ErrorTypeRateLimit}))
	assert.False(t, DefaultRetryIf(&apierrors.Error{Type: apierrors.ErrorTypeAuth}))

	assert.True(t, DefaultRetryIf(errors.New("some transient thing")), "unknown errors default to retryable")
}

func TestExponentialBackoff(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		// No jitter so delays are exact
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, 10*time.Second, eb.NextDelay(10), "capped at max delay")
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	for i := 0; i < 100; i++ {
		delay := eb.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 1800*time.Millisecond)
		assert.LessOrEqual(t, delay, 2200*time.Millisecond)
	}
}

func TestLinearBackoff(t *testing.T) {
	lb := &LinearBackoff{
		BaseDelay: time.Second,
		Increment: time.Second,
		MaxDelay:  3 * time.Second,
	}

	assert.Equal(t, time.Second, lb.NextDelay(1))
	assert.Equal(t, 2*time.Second, lb.NextDelay(2))
	assert.Equal(t, 3*time.Second, lb.NextDelay(3))
	assert.Equal(t, 3*time.Second, lb.NextDelay(10), "capped at max delay")
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 5 * time.Second}

	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, 5*time.Second, cb.NextDelay(1))
	assert.Equal(t, 5*time.Second, cb.NextDelay(7))
}
