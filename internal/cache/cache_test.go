package cache

import (
	"context"
	"testing"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	global, history, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, global.SetLatest(ctx, &domain.GlobalStockUpload{ID: "u1"}))
	_, ok, err := global.GetLatest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, history.SetSummary(ctx, "s1", domain.PeriodWeek, nil))
	_, ok, err = history.GetSummary(ctx, "s1", domain.PeriodWeek)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, history.InvalidateStore(ctx, "s1"))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@cache:6380/1"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestSummaryKeyIsScopedByStore(t *testing.T) {
	assert.Equal(t, "orderplan:history:summary:s1:week", summaryKey("s1", domain.PeriodWeek))
	assert.NotEqual(t, summaryKey("s1", domain.PeriodDay), summaryKey("s1", domain.PeriodWeek))
}
