package recorder

import (
	"errors"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Recorder persists scan and exchange-rate history for later review. Nothing
// recorded is read back into a computation.
type Recorder interface {
	RecordScan(res *model.ScanResult) error
	RecordQuote(q *model.FXQuote) error
	Close() error
}

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Criteria        model.Criteria `json:"criteria"`
	UniverseSize    int            `json:"universe_size"`
	UniverseWarning string         `json:"universe_warning,omitempty"`
	Cancelled       bool           `json:"cancelled"`
	Matches         []model.Match  `json:"matches"`
}

// History is implemented by recorders that can list past scans.
type History interface {
	RecentScans(limit int) ([]ScanSummary, error)
}

// Multi fans every record out to all recorders and joins their errors.
type Multi []Recorder

func (m Multi) RecordScan(res *model.ScanResult) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordScan(res))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordQuote(q *model.FXQuote) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordQuote(q))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// RecentScans delegates to the first recorder that keeps history.
func (m Multi) RecentScans(limit int) ([]ScanSummary, error) {
	for _, r := range m {
		if h, ok := r.(History); ok {
			return h.RecentScans(limit)
		}
	}
	return nil, nil
}
