// Package fixed provides 256-bit fixed-point arithmetic for scores and
// token amounts. All ratios are integers scaled by 10^18; every operation
// floor-divides and reports overflow instead of wrapping, so identical
// inputs produce identical results on every node.
package fixed

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Num is a 256-bit unsigned fixed-point number. The zero value is zero.
type Num = uint256.Int

// ErrOverflow is returned when a checked operation exceeds 256 bits or
// divides by zero. Callers treat it as fatal: counts and balances are
// expected to stay far below the bound in practice.
var ErrOverflow = errors.New("fixed: overflow")

// scaleUint is 10^18, the integer representation of 1.0.
const scaleUint = 1_000_000_000_000_000_000

// Scale returns 1.0 in fixed-point units (10^18).
func Scale() Num {
	return *uint256.NewInt(scaleUint)
}

// Zero returns the zero value.
func Zero() Num {
	return Num{}
}

// FromUint64 converts an integer count to a Num (unscaled).
func FromUint64(v uint64) Num {
	return *uint256.NewInt(v)
}

// FromTokens converts a whole-token count into scaled units (v * 10^18).
func FromTokens(v uint64) (Num, error) {
	return Mul(*uint256.NewInt(v), Scale())
}

// Parse decodes a base-10 string into a Num.
func Parse(s string) (Num, error) {
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return Num{}, fmt.Errorf("fixed: parse %q: %w", s, err)
	}
	return *n, nil
}

// Add returns a+b, or ErrOverflow if the sum exceeds 256 bits.
func Add(a, b Num) (Num, error) {
	var r Num
	if _, carry := r.AddOverflow(&a, &b); carry {
		return Num{}, ErrOverflow
	}
	return r, nil
}

// Sub returns a-b, or ErrOverflow if b > a.
func Sub(a, b Num) (Num, error) {
	var r Num
	if _, borrow := r.SubOverflow(&a, &b); borrow {
		return Num{}, ErrOverflow
	}
	return r, nil
}

// Mul multiplies two raw integers with no descale. Overflow is an error.
func Mul(a, b Num) (Num, error) {
	var r Num
	if _, over := r.MulOverflow(&a, &b); over {
		return Num{}, ErrOverflow
	}
	return r, nil
}

// MulDiv returns floor(a*b/d) with a full 512-bit intermediate product.
// d == 0 is ErrOverflow.
func MulDiv(a, b, d Num) (Num, error) {
	if d.IsZero() {
		return Num{}, ErrOverflow
	}
	var r Num
	if _, over := r.MulDivOverflow(&a, &b, &d); over {
		return Num{}, ErrOverflow
	}
	return r, nil
}

// MulScaled returns floor(a*b/SCALE), the fixed-point product of two
// scaled ratios.
func MulScaled(a, b Num) (Num, error) {
	return MulDiv(a, b, Scale())
}

// Div returns floor(a*SCALE/b), the fixed-point quotient. b == 0 is
// ErrOverflow.
func Div(a, b Num) (Num, error) {
	return MulDiv(a, Scale(), b)
}

// Ratio returns floor(n*SCALE/d) for raw integer counts n and d.
func Ratio(n, d uint64) (Num, error) {
	return MulDiv(FromUint64(n), Scale(), FromUint64(d))
}

// Min returns the smaller of a and b.
func Min(a, b Num) Num {
	if a.Lt(&b) {
		return a
	}
	return b
}

// Clamp caps v at hi.
func Clamp(v, hi Num) Num {
	if v.Gt(&hi) {
		return hi
	}
	return v
}
