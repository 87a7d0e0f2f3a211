package model

import (
	"fmt"
	"strings"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds raw price data for one symbol, oldest bar first.
type PriceSeries struct {
	Symbol    string
	Period    Period
	Bars      []OHLCV
	FetchedAt time.Time
}

// Closes returns the closing prices of the series in order.
func (p *PriceSeries) Closes() []float64 {
	return Closes(p.Bars)
}

// Closes extracts closing prices from bars.
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Period is a Yahoo-style lookback range.
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
)

// AnalysisPeriods are the lookbacks offered for single-ticker analysis.
var AnalysisPeriods = []Period{Period1mo, Period3mo, Period6mo, Period1y, Period5y}

// ParsePeriod validates s against the analysis periods. Empty input yields def.
func ParsePeriod(s string, def Period) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	for _, p := range AnalysisPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Days returns the approximate number of calendar days covered by the period.
func (p Period) Days() int {
	switch p {
	case Period1d:
		return 1
	case Period5d:
		return 5
	case Period1mo:
		return 31
	case Period3mo:
		return 92
	case Period6mo:
		return 183
	case Period1y:
		return 366
	case Period2y:
		return 731
	case Period5y:
		return 1827
	default:
		return 92
	}
}
