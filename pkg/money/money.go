// Package money holds the single place where unrounded float amounts become
// two-decimal currency values for storage and display.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places used for persisted and rendered amounts.
const Places = 2

// Round converts an unrounded amount into a 2dp decimal. Non-finite input becomes zero.
func Round(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(Places)
}

// Float returns the float64 form of a stored decimal amount.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Format renders v with exactly two decimals, e.g. "1112.00".
func Format(v float64) string {
	return Round(v).StringFixed(Places)
}

// Amount is a float that marshals to JSON as a 2dp number.
type Amount float64

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(Format(float64(a))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	*a = Amount(Float(d))
	return nil
}
