package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without configured bars get a generated series around Price.
type MockFetcher struct {
	Price        float64
	Bars         map[string][]model.OHLCV
	Fundamentals map[string]*model.Fundamentals
	BarErrors    map[string]error
	FundErrors   map[string]error
	Delay        time.Duration

	mu        sync.Mutex
	barCalls  map[string]int
	fundCalls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.OHLCV, error) {
	m.count(&m.barCalls, symbol)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if err, ok := m.BarErrors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, period.Days()*5/7), nil
}

func (m *MockFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	m.count(&m.fundCalls, symbol)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if err, ok := m.FundErrors[symbol]; ok {
		return nil, err
	}
	if f, ok := m.Fundamentals[symbol]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("mock: no fundamentals for %s", symbol)
}

// BarCalls returns how many times bars were requested for symbol.
func (m *MockFetcher) BarCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.barCalls[symbol]
}

// FundamentalsCalls returns how many times fundamentals were requested for symbol.
func (m *MockFetcher) FundamentalsCalls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fundCalls[symbol]
}

func (m *MockFetcher) count(calls *map[string]int, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if *calls == nil {
		*calls = make(map[string]int)
	}
	(*calls)[symbol]++
}

func (m *MockFetcher) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// BarsFromCloses builds a daily series ending today from closing prices.
func BarsFromCloses(closes ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(len(closes) - i)),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}
