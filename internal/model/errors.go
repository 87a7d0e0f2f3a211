package model

import "errors"

var (
	// ErrNoData is returned when a data source answers with an empty series.
	ErrNoData = errors.New("no data returned")
	// ErrUnknownPeriod is returned for a lookback outside AnalysisPeriods.
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrInvalidCriteria is returned when a screener threshold is not a finite number.
	ErrInvalidCriteria = errors.New("invalid screener criteria")
)
