package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	ctx := context.Background()
	repo := &memRateLimitRepo{}
	rl := NewRateLimiter(repo)

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl.Now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		d, err := rl.Check(ctx, "1.2.3.4", "test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
		now = now.Add(10 * time.Second)
	}

	// 4ª chamada dentro da janela é negada; o primeiro hit expira em start+60s
	d, err := rl.Check(ctx, "1.2.3.4", "test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.Len(t, repo.hits, 3, "chamada negada não grava hit")

	// depois que o primeiro hit sai da janela, libera de novo
	now = start.Add(time.Minute + time.Second)
	d, err = rl.Check(ctx, "1.2.3.4", "test", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiterIsolatesIdentifiersAndActions(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(&memRateLimitRepo{})

	d, _ := rl.Check(ctx, "a", "x", 1, time.Minute)
	assert.True(t, d.Allowed)
	d, _ = rl.Check(ctx, "a", "x", 1, time.Minute)
	assert.False(t, d.Allowed)

	d, _ = rl.Check(ctx, "b", "x", 1, time.Minute)
	assert.True(t, d.Allowed)
	d, _ = rl.Check(ctx, "a", "y", 1, time.Minute)
	assert.True(t, d.Allowed)
}

func TestEnforceUnknownActionAllows(t *testing.T) {
	rl := NewRateLimiter(&memRateLimitRepo{})

	assert.NoError(t, rl.Enforce(context.Background(), "id", "unknown.action"))
}

func TestEnforceReturnsRateLimitError(t *testing.T) {
	rl := NewRateLimiter(&memRateLimitRepo{})
	rl.Rules = map[string]RateLimitRule{"x": {Limit: 1, Window: time.Hour}}

	require.NoError(t, rl.Enforce(context.Background(), "id", "x"))
	err := rl.Enforce(context.Background(), "id", "x")

	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.InDelta(t, time.Hour.Seconds(), rle.RetryAfter.Seconds(), 1)
}

func TestRateLimiterDeniedAtWindowEdgeWaitsAtLeastOneSecond(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(&memRateLimitRepo{})

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl.Now = func() time.Time { return now }

	d, err := rl.Check(ctx, "1.2.3.4", "edge", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// exatamente em start+janela o hit ainda está dentro de [now-window, now]
	now = start.Add(time.Minute)
	d, err = rl.Check(ctx, "1.2.3.4", "edge", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
}
