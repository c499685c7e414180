/*
numeric.go - Centralized rounding and numeric coercion

PURPOSE:
  Every calculator output passes through Round2 exactly once, and every
  number crossing the JSON boundary passes through FromFloat. Centralizing
  both is what guarantees that repeated calls with identical inputs produce
  byte-identical results.

ROUNDING:
  Round-half-up (decimal's half-away-from-zero) to 2 places. Banker's
  rounding is not required; consistency is.
*/
package leave

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromFloat converts a float64 to decimal, mapping NaN and ±Inf to zero.
// decimal.NewFromFloat panics on non-finite input; the calculator never may.
func FromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ClampZero floors a value at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var one = decimal.NewFromInt(1)
