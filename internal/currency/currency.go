// Package currency parses and formats monetary amounts with thousands
// separators.
package currency

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxExactInt bounds the integers that print without a fractional part.
const maxExactInt = 1e15

// ParseAmount parses text such as "1,234,567" or " 12 500.5 ". Anything that
// does not parse to a finite number yields 0.
func ParseAmount(text string) float64 {
	cleaned := strings.NewReplacer(",", "", " ", "", " ", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatAmount groups thousands with commas. Whole numbers print without
// decimals.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < maxExactInt {
		return humanize.Comma(int64(v))
	}
	return humanize.Commaf(v)
}

// FormatFixed groups thousands with commas and prints exactly digits
// decimals, e.g. FormatFixed(1380.5, 2) == "1,380.50".
func FormatFixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if digits < 0 {
		digits = 0
	}
	if digits > 9 {
		digits = 9
	}
	format := "#,###." + strings.Repeat("#", digits)
	return humanize.FormatFloat(format, v)
}
