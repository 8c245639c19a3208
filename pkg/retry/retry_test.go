package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "replayscraper/pkg/errors"
)

func quickConfig(maxAttempts int) *Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	cfg.Backoff = &ExponentialBackoff{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	return cfg
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	var retried []int

	cfg := quickConfig(7)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("handshake failed")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	base := errors.New("still down")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return base
	}, quickConfig(4))

	assert.Equal(t, 4, attempts)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "max retry attempts (4) exceeded")
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errs.FromStatusCode(404)
	}, quickConfig(5))

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := quickConfig(0)
	cfg.Backoff = &ExponentialBackoff{BaseDelay: time.Hour, Multiplier: 1}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, func(ctx context.Context) error {
		return errs.FromStatusCode(503)
	}, cfg)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("eof")))
	assert.True(t, DefaultRetryIf(errs.FromStatusCode(429)))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, 200, "bad frame")))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0

	users, err := DoWithResult(context.Background(), func(ctx context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("timeout")
		}
		return []string{"alice", "bob"}, nil
	}, quickConfig(3))

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}
