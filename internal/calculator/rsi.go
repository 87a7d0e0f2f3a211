package calculator

import (
	"math"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// DefaultRSIWindow is the conventional RSI lookback.
const DefaultRSIWindow = 14

// RSI computes the relative strength index series over closes using a simple
// rolling mean of gains and losses. The result has the same length as closes.
// The first window-1 positions are NaN, and so is any position where the mean
// loss is zero. The first close has no prior change and counts as a zero move.
func RSI(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(closes) < 2 {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := RollingMean(gains, window)
	avgLoss := RollingMean(losses, window)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) || avgLoss[i] == 0 {
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// LastRSI returns the trailing RSI value of the bars, NaN when undefined.
func LastRSI(bars []model.OHLCV, window int) float64 {
	if len(bars) == 0 {
		return math.NaN()
	}
	series := RSI(model.Closes(bars), window)
	return series[len(series)-1]
}
