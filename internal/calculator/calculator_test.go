package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

func TestRSI_SameLengthAndWarmup(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		// alternate up/down so the loss term is never zero
		closes[i] = 100 + float64(i%2)
	}
	rsi := RSI(closes, 14)
	if len(rsi) != len(closes) {
		t.Fatalf("expected %d values, got %d", len(closes), len(rsi))
	}
	for i := 0; i < 13; i++ {
		if !math.IsNaN(rsi[i]) {
			t.Errorf("index %d: expected NaN during warmup, got %.2f", i, rsi[i])
		}
	}
	for i := 13; i < len(rsi); i++ {
		if math.IsNaN(rsi[i]) {
			t.Errorf("index %d: expected defined value", i)
		}
	}
}

func TestRSI_ExactlyWindowCloses(t *testing.T) {
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	rsi := RSI(closes, 14)
	// 13 changes, 7 up and 6 down, plus the zero move at index 0
	want := 100 - 100/(1+7.0/6.0)
	if math.Abs(rsi[13]-want) > 1e-9 {
		t.Errorf("index 13: expected %.4f, got %.4f", want, rsi[13])
	}
}

func TestRSI_ShorterThanWindow(t *testing.T) {
	rsi := RSI([]float64{1, 2, 1, 2, 1}, 14)
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("index %d: expected NaN, got %.2f", i, v)
		}
	}
}

func TestRSI_Alternating(t *testing.T) {
	closes := []float64{10, 11, 10, 11, 10, 11}
	rsi := RSI(closes, 2)
	last := rsi[len(rsi)-1]
	if math.Abs(last-50) > 1e-9 {
		t.Errorf("expected 50 for balanced moves, got %.4f", last)
	}
}

func TestRSI_DecreasingThenFlatGoesToZero(t *testing.T) {
	var closes []float64
	for i := 0; i < 30; i++ {
		closes = append(closes, 200-float64(i)*1.5)
	}
	last := closes[len(closes)-1]
	closes = append(closes, last, last, last)

	rsi := RSI(closes, 14)
	got := rsi[len(rsi)-1]
	if got != 0 {
		t.Errorf("expected 0 with no gains in window, got %.4f", got)
	}
}

func TestRSI_IncreasingTailApproaches100(t *testing.T) {
	var closes []float64
	for i := 0; i < 30; i++ {
		closes = append(closes, 100+float64(i))
	}
	// one tiny dip keeps the loss term defined
	closes[25] -= 1.01

	rsi := RSI(closes, 14)
	got := rsi[len(rsi)-1]
	if math.IsNaN(got) || got < 90 || got > 100 {
		t.Errorf("expected value close to 100, got %.4f", got)
	}
}

func TestRSI_ZeroLossIsUndefined(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"strictly increasing", []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		{"flat", []float64{5, 5, 5, 5, 5, 5, 5, 5}},
	}
	for _, tt := range tests {
		rsi := RSI(tt.closes, 3)
		if got := rsi[len(rsi)-1]; !math.IsNaN(got) {
			t.Errorf("%s: expected NaN, got %.4f", tt.name, got)
		}
	}
}

func TestRSI_NonPositiveWindow(t *testing.T) {
	for _, v := range RSI([]float64{1, 2, 3}, 0) {
		if !math.IsNaN(v) {
			t.Fatalf("expected all NaN for window 0, got %.2f", v)
		}
	}
}

func TestLastRSI(t *testing.T) {
	if !math.IsNaN(LastRSI(nil, 14)) {
		t.Error("expected NaN for empty bars")
	}
	bars := make([]model.OHLCV, 0, 6)
	for _, c := range []float64{10, 11, 10, 11, 10, 11} {
		bars = append(bars, model.OHLCV{Close: c})
	}
	if got := LastRSI(bars, 2); math.Abs(got-50) > 1e-9 {
		t.Errorf("expected 50, got %.4f", got)
	}
}

func TestRollingMean(t *testing.T) {
	got := RollingMean([]float64{1, 2, 3, 4}, 2)
	want := []float64{math.NaN(), 1.5, 2.5, 3.5}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("index %d: expected NaN, got %.2f", i, got[i])
			}
			continue
		}
		if got[i] != want[i] {
			t.Errorf("index %d: expected %.2f, got %.2f", i, want[i], got[i])
		}
	}
}

func TestCalculateSMA(t *testing.T) {
	if _, err := CalculateSMA([]float64{1, 2}, 3); err == nil {
		t.Error("expected error for insufficient data")
	}
	sma, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sma != 3.5 {
		t.Errorf("expected 3.5, got %.2f", sma)
	}
}

func TestPeriodRangeAndLastChange(t *testing.T) {
	now := time.Now()
	bars := []model.OHLCV{
		{Time: now.AddDate(0, 0, -2), High: 12, Low: 9, Close: 10},
		{Time: now.AddDate(0, 0, -1), High: 15, Low: 10, Close: 14},
		{Time: now, High: 14, Low: 8, Close: 11},
	}
	high, low, err := PeriodRange(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high != 15 || low != 8 {
		t.Errorf("expected range 8..15, got %.0f..%.0f", low, high)
	}

	last, prev, change, err := LastChange(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 11 || prev != 14 || change != -3 {
		t.Errorf("unexpected change: last=%.0f prev=%.0f change=%.0f", last, prev, change)
	}

	if _, _, _, err := LastChange(nil); err == nil {
		t.Error("expected error for empty bars")
	}
}
