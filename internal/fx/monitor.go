package fx

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// CacheSource is the cache namespace of FX quotes.
const CacheSource = "fx"

// QuoteObserver is notified of every fetched quote.
type QuoteObserver func(q model.FXQuote)

// Monitor serves cached quotes from an ordered list of sources.
type Monitor struct {
	sources  []QuoteSource
	cache    *cache.Cache[model.FXQuote]
	observer QuoteObserver
}

// NewMonitor creates a Monitor. Quotes live in c for its TTL.
func NewMonitor(c *cache.Cache[model.FXQuote], sources ...QuoteSource) *Monitor {
	return &Monitor{sources: sources, cache: c}
}

// OnQuote installs an observer called for each freshly fetched quote.
func (m *Monitor) OnQuote(fn QuoteObserver) { m.observer = fn }

// Quote returns the quote for code, trying each source in order on a miss.
func (m *Monitor) Quote(ctx context.Context, code string) (model.FXQuote, error) {
	return m.cache.GetOrFetch(ctx, cache.Key{Source: CacheSource, Params: code}, func(ctx context.Context) (model.FXQuote, error) {
		var errs []error
		for _, src := range m.sources {
			q, err := src.Quote(ctx, code)
			if err != nil {
				log.Printf("[WARN] FX source %s failed for %s: %v", src.Name(), code, err)
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
				continue
			}
			if m.observer != nil {
				m.observer(*q)
			}
			return *q, nil
		}
		if len(errs) == 0 {
			return model.FXQuote{}, fmt.Errorf("no FX sources configured for %s", code)
		}
		return model.FXQuote{}, errors.Join(errs...)
	})
}

// Quotes returns the quotes that could be fetched and an error per failed code.
func (m *Monitor) Quotes(ctx context.Context, codes []string) ([]model.FXQuote, map[string]error) {
	quotes := make([]model.FXQuote, 0, len(codes))
	failed := make(map[string]error)
	for _, code := range codes {
		q, err := m.Quote(ctx, code)
		if err != nil {
			failed[code] = err
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, failed
}

// Refresh drops all cached quotes so the next read goes to the sources.
func (m *Monitor) Refresh(ctx context.Context) error {
	return m.cache.InvalidateSource(ctx, CacheSource)
}
