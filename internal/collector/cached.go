package collector

import (
	"context"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Cache sources used by CachedFetcher.
const (
	SourceBars         = "bars"
	SourceFundamentals = "fundamentals"
)

// CachedFetcher decorates a Fetcher with explicit TTL caches for bars and
// fundamentals.
type CachedFetcher struct {
	inner        Fetcher
	bars         *cache.Cache[[]model.OHLCV]
	fundamentals *cache.Cache[*model.Fundamentals]
}

// NewCachedFetcher wraps inner. Both caches share store.
func NewCachedFetcher(inner Fetcher, store cache.Store, barsTTL, fundamentalsTTL time.Duration) *CachedFetcher {
	return &CachedFetcher{
		inner:        inner,
		bars:         cache.New[[]model.OHLCV](store, barsTTL),
		fundamentals: cache.New[*model.Fundamentals](store, fundamentalsTTL),
	}
}

// OnLookup installs a hit/miss observer on both caches.
func (c *CachedFetcher) OnLookup(fn func(key cache.Key, hit bool)) {
	c.bars.OnLookup = fn
	c.fundamentals.OnLookup = fn
}

func (c *CachedFetcher) Name() string { return c.inner.Name() }

func (c *CachedFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	key := cache.Key{Source: SourceBars, Params: c.inner.Name() + "|" + symbol + "|" + string(period)}
	return c.bars.GetOrFetch(ctx, key, func(ctx context.Context) ([]model.OHLCV, error) {
		return c.inner.FetchBars(ctx, symbol, period)
	})
}

func (c *CachedFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	key := cache.Key{Source: SourceFundamentals, Params: symbol}
	return c.fundamentals.GetOrFetch(ctx, key, func(ctx context.Context) (*model.Fundamentals, error) {
		return c.inner.FetchFundamentals(ctx, symbol)
	})
}

// Invalidate drops every cached bar series and fundamentals snapshot.
func (c *CachedFetcher) Invalidate(ctx context.Context) error {
	if err := c.bars.InvalidateSource(ctx, SourceBars); err != nil {
		return err
	}
	return c.fundamentals.InvalidateSource(ctx, SourceFundamentals)
}
