// Package safe provides overflow-checked arithmetic for unsigned amounts.
package safe

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

var (
	// ErrOverflow is returned when a result does not fit the target type.
	ErrOverflow = errors.New("integer overflow")
	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("integer underflow")
)

// Add returns a+b or ErrOverflow.
func Add[T ~uint64](a, b T) (T, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("add %d + %d: %w", a, b, ErrOverflow)
	}
	return T(sum), nil
}

// Sub returns a-b or ErrUnderflow.
func Sub[T ~uint64](a, b T) (T, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, fmt.Errorf("sub %d - %d: %w", a, b, ErrUnderflow)
	}
	return T(diff), nil
}

// MulDiv returns floor(v*num/den) computed with a 128-bit intermediate.
func MulDiv[T ~uint64](v T, num, den uint64) (T, error) {
	if den == 0 {
		return 0, errors.New("muldiv: zero denominator")
	}
	hi, lo := bits.Mul64(uint64(v), num)
	if hi >= den {
		return 0, fmt.Errorf("muldiv %d * %d / %d: %w", v, num, den, ErrOverflow)
	}
	quo, _ := bits.Div64(hi, lo, den)
	return T(quo), nil
}

// Uint8 converts an unsigned value to uint8 with range validation.
func Uint8[T ~uint | ~uint32 | ~uint64](v T) (uint8, error) {
	if uint64(v) > math.MaxUint8 {
		return 0, fmt.Errorf("value %d out of uint8 range", v)
	}
	return uint8(v), nil
}
