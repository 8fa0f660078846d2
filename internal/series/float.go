package series

import (
	"math"
	"strconv"
)

// Float is a number that may be undefined, e.g. a moving average before
// enough history exists or the return of the first bar.
type Float struct {
	Value float64
	Valid bool
}

// Some returns a defined value
func Some(v float64) Float {
	return Float{Value: v, Valid: true}
}

// None returns an undefined value
func None() Float {
	return Float{}
}

// Or returns the value, or def when undefined
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// Float64 returns the value, NaN when undefined
func (f Float) Float64() float64 {
	return f.Or(math.NaN())
}

func (f Float) String() string {
	if !f.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// Format renders the value with prec decimals, NaN when undefined
func (f Float) Format(prec int) string {
	if !f.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(f.Value, 'f', prec, 64)
}

// MarshalJSON encodes undefined values as null
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid || math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.Value, 'g', -1, 64), nil
}
