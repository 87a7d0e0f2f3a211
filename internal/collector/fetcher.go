package collector

import (
	"context"
	"fmt"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// BarFetcher fetches daily price history.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error)
	Name() string
}

// FundamentalsFetcher fetches company fundamentals.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
}

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	BarFetcher
	FundamentalsFetcher
}

// APIError is returned when a remote endpoint answers with a non-200 status.
type APIError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d, body: %s", e.Source, e.StatusCode, e.Body)
}

// Combine pairs a bar source with a fundamentals source, e.g. Alpaca bars
// with Yahoo fundamentals.
func Combine(bars BarFetcher, fundamentals FundamentalsFetcher) Fetcher {
	return &combined{bars: bars, fundamentals: fundamentals}
}

type combined struct {
	bars         BarFetcher
	fundamentals FundamentalsFetcher
}

func (c *combined) Name() string { return c.bars.Name() }

func (c *combined) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	return c.bars.FetchBars(ctx, symbol, period)
}

func (c *combined) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	return c.fundamentals.FetchFundamentals(ctx, symbol)
}
