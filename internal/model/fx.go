package model

import "time"

// FXQuote is the latest rate for a currency pair and its change against the
// previous close. Rates are quoted in KRW per unit of foreign currency.
type FXQuote struct {
	Code      string    `json:"code"` // e.g. FX_THBKRW
	Rate      float64   `json:"rate"`
	Change    float64   `json:"change"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Currency returns the foreign currency of the pair (FX_THBKRW -> THB).
func (q *FXQuote) Currency() string {
	return CurrencyOf(q.Code)
}

// CurrencyOf extracts the foreign currency from a market index code.
func CurrencyOf(code string) string {
	if len(code) >= 6 && code[:3] == "FX_" {
		return code[3:6]
	}
	return code
}
