package universe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// CacheSource is the cache namespace of resolved universes.
const CacheSource = "universe"

// DefaultFallback is used when every source fails.
var DefaultFallback = []string{"AAPL", "MSFT", "GOOGL", "NVDA", "TSLA"}

var errFallback = errors.New("universe fell back")

// Provider resolves the ticker universe from an ordered chain of sources.
type Provider struct {
	Sources  []Source
	Fallback []string
	// Cache, when set, memoizes successful resolutions. Fallback results are
	// never cached.
	Cache *cache.Cache[model.Universe]
}

// NewProvider creates a Provider over sources with the default fallback list.
func NewProvider(sources ...Source) *Provider {
	return &Provider{Sources: sources, Fallback: DefaultFallback}
}

// Universe returns the symbol list and a warning. The warning is empty when a
// source succeeded and names every failed source when the fallback was used.
func (p *Provider) Universe(ctx context.Context) (model.Universe, string) {
	if p.Cache == nil {
		return p.resolve(ctx)
	}
	var warning string
	u, err := p.Cache.GetOrFetch(ctx, cache.Key{Source: CacheSource, Params: "sp500"}, func(ctx context.Context) (model.Universe, error) {
		u, w := p.resolve(ctx)
		if w != "" {
			warning = w
			return u, errFallback
		}
		return u, nil
	})
	if err != nil {
		return u, warning
	}
	return u, ""
}

// Invalidate drops the memoized universe.
func (p *Provider) Invalidate(ctx context.Context) error {
	if p.Cache == nil {
		return nil
	}
	return p.Cache.InvalidateSource(ctx, CacheSource)
}

func (p *Provider) resolve(ctx context.Context) (model.Universe, string) {
	var failures []string
	for _, src := range p.Sources {
		raw, err := src.Symbols(ctx)
		if err == nil && len(raw) == 0 {
			err = errors.New("no symbols")
		}
		if err == nil {
			u := model.NewUniverse(raw)
			if len(u) > 0 {
				log.Printf("[INFO] Universe loaded from %s: %d symbols", src.Name(), len(u))
				return u, ""
			}
			err = errors.New("no usable symbols")
		}
		log.Printf("[WARN] Universe source %s failed: %v", src.Name(), err)
		failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
	}

	fallback := model.NewUniverse(p.Fallback)
	warning := fmt.Sprintf("could not load the S&P 500 list (%s); using fallback list of %d symbols",
		strings.Join(failures, "; "), len(fallback))
	if len(failures) == 0 {
		warning = fmt.Sprintf("no universe sources configured; using fallback list of %d symbols", len(fallback))
	}
	log.Printf("[WARN] %s", warning)
	return fallback, warning
}
