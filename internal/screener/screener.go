// Package screener walks a ticker universe and keeps the symbols that pass
// the RSI, PER and ROE thresholds.
package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rlaalswo86-stack/godlifedaily/internal/calculator"
	"github.com/rlaalswo86-stack/godlifedaily/internal/collector"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Sentinels applied when fundamentals omit a ratio.
const (
	MissingPER = 999.0
	MissingROE = 0.0
)

// Config tunes the scan.
type Config struct {
	Period        model.Period
	RSIWindow     int
	Workers       int
	RatePerSecond float64 // 0 disables pacing
	CallTimeout   time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Period:        model.Period3mo,
		RSIWindow:     calculator.DefaultRSIWindow,
		Workers:       8,
		RatePerSecond: 10,
		CallTimeout:   15 * time.Second,
	}
}

// Progress is reported once per symbol as its outcome is collected.
type Progress struct {
	Index   int // 1-based count of finished symbols
	Total   int
	Symbol  string
	Outcome model.Outcome
}

// ProgressFunc receives progress updates. It is never called concurrently.
type ProgressFunc func(Progress)

// Observer receives scan telemetry.
type Observer interface {
	ObserveOutcome(o model.Outcome, elapsed time.Duration)
	ObserveScan(r *model.ScanResult)
}

// Option configures a Screener.
type Option func(*Screener)

// WithObserver installs a telemetry observer.
func WithObserver(o Observer) Option {
	return func(s *Screener) { s.observer = o }
}

// WithLimiter replaces the request pacing limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Screener) { s.limiter = l }
}

// Screener evaluates a universe against screening criteria.
type Screener struct {
	fetcher  collector.Fetcher
	cfg      Config
	limiter  *rate.Limiter
	observer Observer
}

// New creates a Screener. Zero fields of cfg take their defaults.
func New(fetcher collector.Fetcher, cfg Config, opts ...Option) *Screener {
	def := DefaultConfig()
	if cfg.Period == "" {
		cfg.Period = def.Period
	}
	if cfg.RSIWindow <= 0 {
		cfg.RSIWindow = def.RSIWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}

	s := &Screener{fetcher: fetcher, cfg: cfg}
	if cfg.RatePerSecond > 0 {
		burst := int(math.Ceil(cfg.RatePerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type indexed struct {
	i int
	o model.Outcome
}

// Scan evaluates every symbol of universe. A single symbol's failure never
// aborts the scan. When ctx is cancelled the remaining symbols are recorded as
// cancelled and the matches collected so far are returned with ctx.Err().
func (s *Screener) Scan(ctx context.Context, universe []string, criteria model.Criteria, progress ProgressFunc) (*model.ScanResult, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	res := &model.ScanResult{
		ID:           uuid.New().String(),
		StartedAt:    time.Now(),
		Criteria:     criteria,
		UniverseSize: len(universe),
		Outcomes:     make([]model.Outcome, len(universe)),
		Counts:       make(map[model.SkipReason]int),
	}
	log.Printf("[INFO] Scan %s started: %d symbols, RSI<=%.1f PER<%.1f ROE>%.1f%%",
		res.ID, len(universe), criteria.MaxRSI, criteria.MaxPER, criteria.MinROEPercent)

	jobs := make(chan int)
	results := make(chan indexed)

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- indexed{i: i, o: s.evaluate(ctx, universe[i], criteria)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range universe {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(universe))
	finished := 0
	report := func(i int, o model.Outcome) {
		res.Outcomes[i] = o
		res.Counts[o.Reason]++
		done[i] = true
		finished++
		if progress != nil {
			progress(Progress{Index: finished, Total: len(universe), Symbol: o.Symbol, Outcome: o})
		}
	}

	for r := range results {
		report(r.i, r.o)
	}
	for i, sym := range universe {
		if !done[i] {
			report(i, model.Outcome{Symbol: sym, Reason: model.ReasonCancelled, Err: ctx.Err(), Error: errString(ctx.Err())})
		}
	}

	for _, o := range res.Outcomes {
		if o.Matched() {
			res.Matches = append(res.Matches, *o.Match)
		}
	}
	SortMatches(res.Matches)

	res.FinishedAt = time.Now()
	res.Cancelled = ctx.Err() != nil
	if s.observer != nil {
		s.observer.ObserveScan(res)
	}
	log.Printf("[INFO] Scan %s finished in %s: %d matches out of %d (cancelled=%v)",
		res.ID, res.Duration().Round(time.Millisecond), len(res.Matches), len(universe), res.Cancelled)
	return res, ctx.Err()
}

// SortMatches orders matches by RSI ascending, ties broken by symbol.
func SortMatches(m []model.Match) {
	sort.SliceStable(m, func(i, j int) bool {
		if m[i].RSI != m[j].RSI {
			return m[i].RSI < m[j].RSI
		}
		return m[i].Symbol < m[j].Symbol
	})
}

func (s *Screener) evaluate(ctx context.Context, symbol string, c model.Criteria) model.Outcome {
	start := time.Now()
	o := s.check(ctx, symbol, c)
	if ctx.Err() != nil && (errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded)) {
		o = model.Outcome{Symbol: symbol, Reason: model.ReasonCancelled, Err: ctx.Err(), Error: errString(ctx.Err())}
	}
	if s.observer != nil {
		s.observer.ObserveOutcome(o, time.Since(start))
	}
	return o
}

func (s *Screener) check(ctx context.Context, symbol string, c model.Criteria) model.Outcome {
	out := model.Outcome{Symbol: symbol}
	fail := func(reason model.SkipReason, err error) model.Outcome {
		out.Reason = reason
		out.Err = err
		out.Error = errString(err)
		log.Printf("[ERROR] %s: %v", symbol, err)
		return out
	}

	bars, err := s.fetchBars(ctx, symbol)
	if err != nil {
		return fail(model.ReasonFetchFailed, err)
	}
	if len(bars) == 0 {
		out.Reason = model.ReasonNoData
		out.Detail = "no price history"
		log.Printf("[SKIP] %s: no data", symbol)
		return out
	}

	rsi := calculator.LastRSI(bars, s.cfg.RSIWindow)
	if math.IsNaN(rsi) {
		out.Reason = model.ReasonRSIUndefined
		out.Detail = fmt.Sprintf("RSI undefined over %d bars", len(bars))
		log.Printf("[SKIP] %s: RSI undefined", symbol)
		return out
	}
	out.RSI = &rsi
	if rsi > c.MaxRSI {
		out.Reason = model.ReasonRSIAbove
		out.Detail = fmt.Sprintf("RSI(%.1f) > %.1f", rsi, c.MaxRSI)
		log.Printf("[SKIP] %s: RSI(%.1f) > %.1f", symbol, rsi, c.MaxRSI)
		return out
	}

	fund, err := s.fetchFundamentals(ctx, symbol)
	if err == nil && fund == nil {
		err = model.ErrNoData
	}
	if err != nil {
		return fail(model.ReasonFundamentalsFailed, err)
	}
	per, roe := MissingPER, MissingROE
	if fund.TrailingPE != nil {
		per = *fund.TrailingPE
	}
	if fund.ReturnOnEquity != nil {
		roe = *fund.ReturnOnEquity
	}
	roePct := roe * 100

	if !(per < c.MaxPER && per > 0 && roePct > c.MinROEPercent) {
		out.Reason = model.ReasonCriteriaNotMet
		out.Detail = fmt.Sprintf("PER:%.1f (max %.1f), ROE:%.1f%% (min %.1f%%)", per, c.MaxPER, roePct, c.MinROEPercent)
		log.Printf("[FAIL] %s: %s", symbol, out.Detail)
		return out
	}

	out.Reason = model.ReasonMatched
	out.Match = &model.Match{
		Symbol:     symbol,
		Price:      bars[len(bars)-1].Close,
		RSI:        rsi,
		PER:        per,
		ROEPercent: roePct,
		Company:    fund.DisplayName(),
	}
	log.Printf("[PASS] %s: RSI:%.1f, PER:%.1f, ROE:%.1f%%", symbol, rsi, per, roePct)
	return out
}

func (s *Screener) fetchBars(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.fetcher.FetchBars(callCtx, symbol, s.cfg.Period)
}

func (s *Screener) fetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.fetcher.FetchFundamentals(callCtx, symbol)
}

func (s *Screener) wait(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
