package collector

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// AlpacaFetcher implements BarFetcher using the Alpaca market-data API.
// Alpaca has no fundamentals endpoint; pair it with a FundamentalsFetcher
// through Combine.
type AlpacaFetcher struct {
	client *marketdata.Client
	feed   string
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher with the given credentials. feed is
// "iex" for free accounts and "sip" for paid ones; dataURL may be empty.
// client carries the proxy and per-call timeout; nil selects the library's
// default client.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL, feed string, client *http.Client) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: client,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaFetcher{
		client: marketdata.NewClient(opts),
		feed:   feed,
		now:    time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// alpacaSymbol converts class-share notation back to Alpaca's (BRK-B -> BRK.B).
func alpacaSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "-", ".")
}

func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	end := f.now()
	start := end.AddDate(0, 0, -period.Days())

	alpacaBars, err := f.client.GetBars(alpacaSymbol(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      f.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}

	bars := make([]model.OHLCV, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, model.OHLCV{
			Time:   ab.Timestamp,
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
