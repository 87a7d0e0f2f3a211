package model

// Analysis is the single-ticker report.
type Analysis struct {
	Symbol    string    `json:"symbol"`
	Period    Period    `json:"period"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Change    float64   `json:"change"`
	RSI       *float64  `json:"rsi,omitempty"` // nil when undefined
	PER       *float64  `json:"per,omitempty"`
	MA20      *float64  `json:"ma20,omitempty"` // nil with fewer than 20 closes
	Company   string    `json:"company"`
	Industry  string    `json:"industry,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Closes    []float64 `json:"closes"`
	Warning   string    `json:"warning,omitempty"`
}
