package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	latestGlobalStockKey = keyPrefix + "global_stock:latest"
	historySummaryPrefix = keyPrefix + "history:summary:"
)

// GlobalStockCache holds the latest global stock upload.
type GlobalStockCache interface {
	GetLatest(ctx context.Context) (*domain.GlobalStockUpload, bool, error)
	SetLatest(ctx context.Context, upload *domain.GlobalStockUpload) error
	InvalidateLatest(ctx context.Context) error
}

// HistoryCache holds per-store history summaries.
type HistoryCache interface {
	GetSummary(ctx context.Context, storeID string, period domain.Period) ([]domain.ProductSummary, bool, error)
	SetSummary(ctx context.Context, storeID string, period domain.Period, summary []domain.ProductSummary) error
	InvalidateStore(ctx context.Context, storeID string) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Noop satisfies every cache interface and never hits.
type Noop struct{}

// New returns redis backed caches, or no-op caches when caching is
// disabled.
func New(cfg config.CacheConfig) (GlobalStockCache, HistoryCache, error) {
	if !cfg.Enabled {
		return NewNoop(), NewNoop(), nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	c := &redisCache{client: client, ttl: ttl}
	return c, c, nil
}

func NewNoop() *Noop {
	return &Noop{}
}

func (c *redisCache) GetLatest(ctx context.Context) (*domain.GlobalStockUpload, bool, error) {
	var upload domain.GlobalStockUpload
	ok, err := getJSON(ctx, c.client, latestGlobalStockKey, &upload)
	if err != nil || !ok {
		return nil, false, err
	}
	return &upload, true, nil
}

func (c *redisCache) SetLatest(ctx context.Context, upload *domain.GlobalStockUpload) error {
	return setJSON(ctx, c.client, latestGlobalStockKey, upload, c.ttl)
}

func (c *redisCache) InvalidateLatest(ctx context.Context) error {
	return c.client.Del(ctx, latestGlobalStockKey).Err()
}

func (c *redisCache) GetSummary(ctx context.Context, storeID string, period domain.Period) ([]domain.ProductSummary, bool, error) {
	var summary []domain.ProductSummary
	ok, err := getJSON(ctx, c.client, summaryKey(storeID, period), &summary)
	if err != nil || !ok {
		return nil, false, err
	}
	return summary, true, nil
}

func (c *redisCache) SetSummary(ctx context.Context, storeID string, period domain.Period, summary []domain.ProductSummary) error {
	return setJSON(ctx, c.client, summaryKey(storeID, period), summary, c.ttl)
}

func (c *redisCache) InvalidateStore(ctx context.Context, storeID string) error {
	return deleteKeysWithPrefix(ctx, c.client, historySummaryPrefix+storeID+":", scanBatchSize)
}

func (n *Noop) GetLatest(ctx context.Context) (*domain.GlobalStockUpload, bool, error) {
	return nil, false, nil
}

func (n *Noop) SetLatest(ctx context.Context, upload *domain.GlobalStockUpload) error {
	return nil
}

func (n *Noop) InvalidateLatest(ctx context.Context) error {
	return nil
}

func (n *Noop) GetSummary(ctx context.Context, storeID string, period domain.Period) ([]domain.ProductSummary, bool, error) {
	return nil, false, nil
}

func (n *Noop) SetSummary(ctx context.Context, storeID string, period domain.Period, summary []domain.ProductSummary) error {
	return nil
}

func (n *Noop) InvalidateStore(ctx context.Context, storeID string) error {
	return nil
}

func summaryKey(storeID string, period domain.Period) string {
	return fmt.Sprintf("%s%s:%s", historySummaryPrefix, storeID, period)
}
