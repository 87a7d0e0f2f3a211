package calculator

import (
	"errors"
	"math"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// PeriodRange returns the highest high and lowest low across all bars.
func PeriodRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// LastChange returns the latest close, the close before it and their
// difference. With a single bar the previous close equals the latest one.
func LastChange(bars []model.OHLCV) (last, prev, change float64, err error) {
	if len(bars) == 0 {
		return 0, 0, 0, errors.New("no bars provided")
	}
	last = bars[len(bars)-1].Close
	prev = last
	if len(bars) >= 2 {
		prev = bars[len(bars)-2].Close
	}
	return last, prev, last - prev, nil
}
