package timeline

import (
	"fmt"
	"math/big"

	"splice/internal/codec"
)

// Length is a duration in edit units, or indeterminate.
type Length struct {
	Units         int64
	Indeterminate bool
}

// Units returns a determinate length.
func Units(n int64) Length { return Length{Units: n} }

// Indeterminate is the length of components that do not declare one.
var Indeterminate = Length{Indeterminate: true}

// Add sums two lengths; indeterminate is absorbing.
func (l Length) Add(o Length) Length {
	if l.Indeterminate || o.Indeterminate {
		return Indeterminate
	}
	return Units(l.Units + o.Units)
}

// Sub subtracts o from l; indeterminate is absorbing.
func (l Length) Sub(o Length) Length {
	if l.Indeterminate || o.Indeterminate {
		return Indeterminate
	}
	return Units(l.Units - o.Units)
}

// Duration converts the length to seconds at rate. ok is false for
// indeterminate lengths and zero rates.
func (l Length) Duration(rate codec.Rational) (*big.Rat, bool) {
	if l.Indeterminate || rate.Num == 0 || rate.Den == 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac64(l.Units*int64(rate.Den), int64(rate.Num)), true
}

func (l Length) String() string {
	if l.Indeterminate {
		return "indeterminate"
	}
	return fmt.Sprintf("%d", l.Units)
}
