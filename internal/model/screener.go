package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Criteria holds the three screener thresholds.
type Criteria struct {
	MaxRSI        float64 `json:"max_rsi" yaml:"max_rsi"`
	MaxPER        float64 `json:"max_per" yaml:"max_per"`
	MinROEPercent float64 `json:"min_roe_percent" yaml:"min_roe_percent"`
}

// DefaultCriteria returns the relaxed thresholds the dashboard starts with.
func DefaultCriteria() Criteria {
	return Criteria{MaxRSI: 70, MaxPER: 40, MinROEPercent: 10}
}

// Validate checks that every threshold is a finite number.
func (c Criteria) Validate() error {
	for name, v := range map[string]float64{
		"max_rsi":         c.MaxRSI,
		"max_per":         c.MaxPER,
		"min_roe_percent": c.MinROEPercent,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidCriteria, name)
		}
	}
	return nil
}

// Match is a symbol that passed all three thresholds.
type Match struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	RSI        float64 `json:"rsi"`
	PER        float64 `json:"per"`
	ROEPercent float64 `json:"roe_percent"`
	Company    string  `json:"company"`
}

// SkipReason classifies the outcome of evaluating one symbol.
type SkipReason string

const (
	ReasonMatched            SkipReason = "matched"
	ReasonFetchFailed        SkipReason = "fetch_failed"
	ReasonNoData             SkipReason = "no_data"
	ReasonRSIUndefined       SkipReason = "rsi_undefined"
	ReasonRSIAbove           SkipReason = "rsi_above_threshold"
	ReasonFundamentalsFailed SkipReason = "fundamentals_failed"
	ReasonCriteriaNotMet     SkipReason = "criteria_not_met"
	ReasonCancelled          SkipReason = "cancelled"
)

// Outcome is the typed per-symbol result of a scan.
type Outcome struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
	Error  string     `json:"error,omitempty"`
	RSI    *float64   `json:"rsi,omitempty"`
	Match  *Match     `json:"match,omitempty"`
	Err    error      `json:"-"`
}

// Matched reports whether the symbol passed every filter.
func (o Outcome) Matched() bool { return o.Reason == ReasonMatched && o.Match != nil }

// ScanResult is the outcome of one screener run.
type ScanResult struct {
	ID              string             `json:"id"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	Criteria        Criteria           `json:"criteria"`
	UniverseSize    int                `json:"universe_size"`
	UniverseWarning string             `json:"universe_warning,omitempty"`
	Matches         []Match            `json:"matches"`
	Outcomes        []Outcome          `json:"outcomes"`
	Counts          map[SkipReason]int `json:"counts"`
	Cancelled       bool               `json:"cancelled"`
}

// Duration returns how long the scan took.
func (r *ScanResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Universe is a list of unique, normalized ticker symbols.
type Universe []string

// NormalizeSymbol trims and upper-cases s and replaces class-share periods
// with hyphens (BRK.B -> BRK-B).
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ".", "-")
}

// NewUniverse normalizes raw symbols, drops blanks and keeps the first
// occurrence of each symbol.
func NewUniverse(raw []string) Universe {
	seen := make(map[string]struct{}, len(raw))
	u := make(Universe, 0, len(raw))
	for _, r := range raw {
		sym := NormalizeSymbol(r)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		u = append(u, sym)
	}
	return u
}
