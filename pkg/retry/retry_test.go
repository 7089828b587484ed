package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)

	assert.Greater(t, StartupConfig().MaxRetries, cfg.MaxRetries)
}

func TestDo(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(2), func() error {
			calls++
			return fmt.Errorf("attempt %d", calls)
		})
		require.EqualError(t, err, "attempt 3")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops waiting when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

		calls := 0
		err := Do(ctx, cfg, func() error {
			calls++
			cancel()
			return errors.New("timeout")
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		err := Do(context.Background(), nil, func() error { return nil })
		assert.NoError(t, err)
	})
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("the database system is starting up")
		}
		return "pool", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pool", got)
	assert.Equal(t, 2, calls)
}

func TestDoIfRetryable(t *testing.T) {
	t.Run("permanent errors return at once", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			return errors.New("password authentication failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			if calls < 2 {
				return errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

type declared struct{ retry bool }

func (d declared) Error() string     { return "declared" }
func (d declared) IsRetryable() bool { return d.retry }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: Connection Refused"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"starting up", errors.New("FATAL: the database system is starting up (SQLSTATE 57P03)"), true},
		{"sqlite busy", errors.New("sqlite3: database is locked"), false},
		{"deadlock", errors.New("deadlock detected"), true},
		{"wrapped", fmt.Errorf("ping database: %w", errors.New("i/o timeout")), true},
		{"syntax", errors.New("syntax error at or near SELECT"), false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), false},
		{"declares retryable", declared{retry: true}, true},
		{"declares permanent", fmt.Errorf("wrapped: %w", declared{retry: false}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestApplyJitter(t *testing.T) {
	assert.Equal(t, time.Second, applyJitter(time.Second, 0))

	for range 50 {
		d := applyJitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}
