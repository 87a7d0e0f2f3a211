package collector

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/rlaalswo86-stack/godlifedaily/internal/calculator"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

const summaryLimit = 200

// Analyzer builds the single-ticker report from a Fetcher.
type Analyzer struct {
	Fetcher       Fetcher
	RSIWindow     int
	DefaultPeriod model.Period
}

// NewAnalyzer creates a new Analyzer with the default RSI window and period.
func NewAnalyzer(fetcher Fetcher) *Analyzer {
	return &Analyzer{
		Fetcher:       fetcher,
		RSIWindow:     calculator.DefaultRSIWindow,
		DefaultPeriod: model.Period6mo,
	}
}

// Analyze fetches history and fundamentals for symbol and computes the
// report. An empty period selects the default; a failed fundamentals lookup
// is reported as a warning rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, period model.Period) (*model.Analysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("analyze: empty symbol")
	}
	period, err := model.ParsePeriod(string(period), a.DefaultPeriod)
	if err != nil {
		return nil, err
	}

	bars, err := a.Fetcher.FetchBars(ctx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, period, model.ErrNoData)
	}

	res := &model.Analysis{
		Symbol:  symbol,
		Period:  period,
		Company: symbol,
		Closes:  model.Closes(bars),
	}

	res.Price, res.PrevClose, res.Change, _ = calculator.LastChange(bars)
	res.High, res.Low, _ = calculator.PeriodRange(bars)

	if ma, err := calculator.CalculateSMA(res.Closes, 20); err == nil {
		res.MA20 = &ma
	}

	if rsi := calculator.LastRSI(bars, a.RSIWindow); !math.IsNaN(rsi) {
		res.RSI = &rsi
	} else {
		log.Printf("[WARN] RSI undefined for %s over %s (%d bars)", symbol, period, len(bars))
	}

	fund, err := a.Fetcher.FetchFundamentals(ctx, symbol)
	if err != nil {
		log.Printf("[WARN] fundamentals for %s failed: %v", symbol, err)
		res.Warning = fmt.Sprintf("fundamentals unavailable: %v", err)
		return res, nil
	}
	res.Company = fund.DisplayName()
	res.PER = fund.TrailingPE
	res.Industry = fund.Industry
	res.Summary = truncate(fund.Summary, summaryLimit)
	return res, nil
}
