package scraper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.SettleInterval = 250 * time.Millisecond
	return p
}

func TestPoller_ConvergesAfterScrolling(t *testing.T) {
	rendered := 20
	s := &fakeSession{
		content: func() string { return listPage("検索結果 40件", rendered, cardItem) },
		callJS: func(script string, _ any) (any, error) {
			rendered += 10
			return nil, nil
		},
	}
	sleeper := &recordingSleeper{}
	p := NewPoller(testPolicy(), sleeper.Sleep, slog.Default())

	set, err := p.Converge(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 40, set.Expected)
	assert.Equal(t, 40, set.Len())
	assert.Equal(t, 2, s.jsCalls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, sleeper.waits)
}

func TestPoller_AlreadyConverged(t *testing.T) {
	s := &fakeSession{content: func() string { return listPage("3件", 3, cardItem) }}
	sleeper := &recordingSleeper{}

	set, err := NewPoller(testPolicy(), sleeper.Sleep, nil).Converge(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Zero(t, s.jsCalls)
	assert.Empty(t, sleeper.waits)
}

func TestPoller_CountMismatchWithinBound(t *testing.T) {
	tests := []struct {
		name     string
		rendered int
	}{
		{"Stuck below total", 20},
		{"Overshoot", 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSession{content: func() string { return listPage("40", tt.rendered, cardItem) }}
			sleeper := &recordingSleeper{}
			policy := testPolicy()

			_, err := NewPoller(policy, sleeper.Sleep, nil).Converge(context.Background(), s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCountMismatch))

			var cerr *ConvergenceError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, 40, cerr.Expected)
			assert.Equal(t, tt.rendered, cerr.Actual)

			assert.Equal(t, policy.MaxAttempts-1, s.jsCalls)
			assert.Len(t, sleeper.waits, policy.MaxAttempts-1)
		})
	}
}

func TestPoller_MissingCounterIsEmpty(t *testing.T) {
	s := &fakeSession{content: func() string { return listPage("", 5, cardItem) }}

	set, err := NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil).Converge(context.Background(), s)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
	assert.Zero(t, set.Expected)
	assert.Zero(t, s.jsCalls)
}

func TestPoller_CounterWithoutDigits(t *testing.T) {
	s := &fakeSession{content: func() string { return listPage("該当する商品はありません", 0, cardItem) }}

	set, err := NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil).Converge(context.Background(), s)
	require.NoError(t, err)
	assert.Zero(t, set.Expected)
	assert.Zero(t, set.Len())
}

func TestPoller_ConvergeTo(t *testing.T) {
	rendered := 1
	s := &fakeSession{
		content: func() string { return listPage("", rendered, cardItem) },
		callJS: func(string, any) (any, error) {
			rendered++
			return nil, nil
		},
	}

	set, err := NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil).ConvergeTo(context.Background(), s, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 2, s.jsCalls)
}

func TestPoller_SessionFailures(t *testing.T) {
	t.Run("content", func(t *testing.T) {
		boom := errors.New("target closed")
		s := &fakeSession{contentErr: boom}

		_, err := NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil).Converge(context.Background(), s)
		var cerr *ConvergenceError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "content", cerr.Op)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("load more", func(t *testing.T) {
		boom := errors.New("execution context was destroyed")
		s := &fakeSession{
			content: func() string { return listPage("10", 5, cardItem) },
			callJS:  func(string, any) (any, error) { return nil, boom },
		}

		_, err := NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil).Converge(context.Background(), s)
		var cerr *ConvergenceError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "load_more", cerr.Op)
		assert.Equal(t, 10, cerr.Expected)
		assert.Equal(t, 5, cerr.Actual)
		assert.False(t, errors.Is(err, ErrCountMismatch))
	})
}

func TestPoller_SettleHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSession{content: func() string { return listPage("10", 5, cardItem) }}
	policy := testPolicy()
	policy.SettleInterval = time.Hour

	start := time.Now()
	_, err := NewPoller(policy, SleepContext, nil).Converge(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))
	require.NoError(t, SleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
