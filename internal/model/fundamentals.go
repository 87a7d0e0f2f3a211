package model

import "time"

// Fundamentals is a snapshot of company data used by the screener and the
// single-ticker report. Nil numeric fields mean the source did not report them.
type Fundamentals struct {
	Symbol         string    `json:"symbol"`
	ShortName      string    `json:"short_name,omitempty"`
	TrailingPE     *float64  `json:"trailing_pe,omitempty"`
	ReturnOnEquity *float64  `json:"return_on_equity,omitempty"` // fraction, 0.15 = 15%
	Industry       string    `json:"industry,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// DisplayName returns the short name, or the symbol when none was reported.
func (f *Fundamentals) DisplayName() string {
	if f.ShortName != "" {
		return f.ShortName
	}
	return f.Symbol
}
