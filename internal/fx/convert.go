package fx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rlaalswo86-stack/godlifedaily/internal/currency"
)

var (
	// ErrNoAmount is returned when the amount text parses to zero.
	ErrNoAmount = errors.New("no amount entered")
	// ErrNoRate is returned when no positive THB rate is available.
	ErrNoRate = errors.New("exchange rate unavailable")
	// ErrUnknownDirection is returned for a direction other than krw-thb or thb-krw.
	ErrUnknownDirection = errors.New("unknown conversion direction")
)

// Direction selects the conversion.
type Direction string

const (
	KRWToTHB Direction = "krw-thb"
	THBToKRW Direction = "thb-krw"
)

// CoffeePriceKRW is the price of a Korean americano used for comparison.
const CoffeePriceKRW = 4500

// ParseDirection accepts krw-thb and thb-krw in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case KRWToTHB, THBToKRW:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Conversion is the result of converting an amount.
type Conversion struct {
	Direction Direction `json:"direction"`
	Amount    float64   `json:"amount"`
	Rate      float64   `json:"rate"`
	Result    float64   `json:"result"`
	Verdict   string    `json:"verdict,omitempty"` // thb-krw only
}

// Convert converts amountText using thbRate, the KRW price of one baht.
func Convert(direction Direction, amountText string, thbRate float64) (*Conversion, error) {
	if direction != KRWToTHB && direction != THBToKRW {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	amount := currency.ParseAmount(amountText)
	if amount == 0 {
		return nil, ErrNoAmount
	}
	if thbRate <= 0 {
		return nil, ErrNoRate
	}

	c := &Conversion{Direction: direction, Amount: amount, Rate: thbRate}
	if direction == KRWToTHB {
		c.Result = amount / thbRate
	} else {
		c.Result = amount * thbRate
		c.Verdict = CoffeeVerdict(c.Result)
	}
	return c, nil
}

// CoffeeVerdict compares a KRW amount to a cup of coffee in Korea.
func CoffeeVerdict(krw float64) string {
	if krw < CoffeePriceKRW {
		return "☕ 한국 커피 한 잔보다 싸네요!"
	}
	return "💸 한국 커피보다 비싸군요!"
}
