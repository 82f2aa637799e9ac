// Package num provides the Quantity type used for every in-game amount.
// All money-like math goes through shopspring/decimal, never float64, so
// magnitudes well past 1e300 survive arithmetic and serialization intact.
package num

import (
	"github.com/shopspring/decimal"
)

// powPrecision is the number of fractional digits kept by Pow for
// non-integer exponents (the prestige gain curve uses exponent 0.6).
const powPrecision = 16

// Quantity is an immutable arbitrary-precision decimal amount.
// The zero value is usable and equals Zero().
type Quantity struct {
	dec decimal.Decimal
}

func Zero() Quantity { return Quantity{} }

func One() Quantity { return Quantity{dec: decimal.NewFromInt(1)} }

func FromInt(v int64) Quantity { return Quantity{dec: decimal.NewFromInt(v)} }

func FromFloat(v float64) Quantity { return Quantity{dec: decimal.NewFromFloat(v)} }

// FromString parses a decimal string. Malformed input maps to Zero rather
// than an error so that importing a damaged save never fails hard.
func FromString(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}
	}
	return Quantity{dec: d}
}

func (q Quantity) Add(o Quantity) Quantity { return Quantity{dec: q.dec.Add(o.dec)} }

func (q Quantity) Sub(o Quantity) Quantity { return Quantity{dec: q.dec.Sub(o.dec)} }

func (q Quantity) Mul(o Quantity) Quantity { return Quantity{dec: q.dec.Mul(o.dec)} }

// Div returns q/o. Division by zero yields Zero instead of panicking.
func (q Quantity) Div(o Quantity) Quantity {
	if o.dec.IsZero() {
		return Quantity{}
	}
	return Quantity{dec: q.dec.Div(o.dec)}
}

// Pow raises q to the given exponent. Integer and fractional exponents are
// both supported. Undefined combinations (negative base with a fractional
// exponent) map to Zero.
func (q Quantity) Pow(exp Quantity) Quantity {
	d, err := q.dec.PowWithPrecision(exp.dec, powPrecision)
	if err != nil {
		return Quantity{}
	}
	return Quantity{dec: d}
}

// PowInt raises q to a non-negative integer exponent exactly, with no
// precision cap. Cost curves use this so that a quoted cost and a committed
// cost can never disagree in the last digit.
func (q Quantity) PowInt(exp int) Quantity {
	if exp < 0 {
		return One().Div(q.PowInt(-exp))
	}
	d, err := q.dec.PowInt32(int32(exp))
	if err != nil {
		return Quantity{}
	}
	return Quantity{dec: d}
}

func (q Quantity) Neg() Quantity { return Quantity{dec: q.dec.Neg()} }

func (q Quantity) Abs() Quantity { return Quantity{dec: q.dec.Abs()} }

// Ceil rounds up to the nearest integer. Costs are always charged ceiled.
func (q Quantity) Ceil() Quantity { return Quantity{dec: q.dec.Ceil()} }

// Floor rounds down to the nearest integer. Displayed and decremented
// currency uses floor.
func (q Quantity) Floor() Quantity { return Quantity{dec: q.dec.Floor()} }

// Round rounds half away from zero to the given number of fractional places.
func (q Quantity) Round(places int32) Quantity { return Quantity{dec: q.dec.Round(places)} }

func (q Quantity) Cmp(o Quantity) int { return q.dec.Cmp(o.dec) }

func (q Quantity) Equals(o Quantity) bool { return q.dec.Equal(o.dec) }

func (q Quantity) GreaterThan(o Quantity) bool { return q.dec.GreaterThan(o.dec) }

func (q Quantity) GreaterThanOrEqual(o Quantity) bool { return q.dec.GreaterThanOrEqual(o.dec) }

func (q Quantity) LessThan(o Quantity) bool { return q.dec.LessThan(o.dec) }

func (q Quantity) LessThanOrEqual(o Quantity) bool { return q.dec.LessThanOrEqual(o.dec) }

func (q Quantity) IsZero() bool { return q.dec.IsZero() }

func (q Quantity) IsPositive() bool { return q.dec.IsPositive() }

func (q Quantity) IsNegative() bool { return q.dec.IsNegative() }

func Max(a, b Quantity) Quantity {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

func Min(a, b Quantity) Quantity {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// String renders the exact stored value as a plain decimal string. This is
// the canonical serialization form; see internal/format for display.
func (q Quantity) String() string { return q.dec.String() }

// Float64 returns a lossy float approximation, for efficiency math where
// precision past ~15 digits does not matter (bot scoring, rate estimates).
func (q Quantity) Float64() float64 {
	f, _ := q.dec.Float64()
	return f
}

// IntPart returns the integer part of q, truncated toward zero.
func (q Quantity) IntPart() int64 { return q.dec.IntPart() }

func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.dec.MarshalJSON()
}

// UnmarshalJSON accepts both quoted and bare decimal forms. Malformed input
// maps to Zero, keeping save import total.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		q.dec = decimal.Decimal{}
		return nil
	}
	q.dec = d
	return nil
}
