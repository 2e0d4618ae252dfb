package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 1920, opts.ViewportWidth)
	assert.Equal(t, 1080, opts.ViewportHeight)
	assert.Equal(t, "ja-JP", opts.Locale)
	assert.Equal(t, "Asia/Tokyo", opts.TimezoneID)
	assert.Equal(t, 3, opts.NavigateRetries)
}

func TestCallTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, callTimeout(context.Background(), 30*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := callTimeout(ctx, 30*time.Second)
	assert.LessOrEqual(t, got, 2*time.Second)
	assert.Greater(t, got, time.Second)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Hour)
	defer cancel2()
	assert.Equal(t, 30*time.Second, callTimeout(ctx2, 30*time.Second))
}

func TestTabRejectsCancelledContext(t *testing.T) {
	tab := &Tab{timeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tab.timeoutFor(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = tab.Content(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
