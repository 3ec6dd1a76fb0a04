// Package money holds the monetary amount and rate types shared by the
// promo, pricing and order packages.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when an operation would yield an amount below zero.
	ErrNegativeAmount = errors.New("money: negative amount")
	// ErrAmountOverflow is returned when a result does not fit in an Amount.
	ErrAmountOverflow = errors.New("money: amount overflow")
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value stored as an integer count of minor units.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// Int64 returns the raw minor-unit count.
func (a Amount) Int64() int64 { return int64(a) }

// IsNegative reports whether a is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Add returns a + b, or ErrAmountOverflow when the sum leaves the int64 range.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return a + b, nil
}

// Sub returns a - b, or ErrNegativeAmount when the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrNegativeAmount, a, b)
	}
	return a - b, nil
}

// SubFloor returns a - b saturated at zero.
func (a Amount) SubFloor(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// MulQty returns a multiplied by an integer quantity, or ErrAmountOverflow
// when the product leaves the int64 range.
func (a Amount) MulQty(qty int) (Amount, error) {
	if a == 0 || qty == 0 {
		return 0, nil
	}
	q := Amount(qty)
	p := a * q
	if p/q != a || (q == -1 && a == math.MinInt64) {
		return 0, fmt.Errorf("%w: %d x %d", ErrAmountOverflow, a, qty)
	}
	return p, nil
}

// MulRate multiplies a by r exactly and rounds half away from zero to whole minor units.
// The result saturates at the int64 bounds; use MulRateChecked where that matters.
func (a Amount) MulRate(r Rate) Amount {
	return FromDecimal(a.Decimal().Mul(r.d))
}

// MulRateChecked is MulRate reporting ErrAmountOverflow instead of saturating.
func (a Amount) MulRateChecked(r Rate) (Amount, error) {
	d := a.Decimal().Mul(r.d).Round(0)
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: %d x %s", ErrAmountOverflow, a, r)
	}
	return Amount(d.IntPart()), nil
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Decimal converts the amount to an exact decimal.
func (a Amount) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(a)) }

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) { return int64(a), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)
	case int32:
		*a = Amount(v)
	case nil:
		*a = 0
	default:
		return fmt.Errorf("money: cannot scan %T into Amount", src)
	}
	return nil
}

// FromDecimal rounds d half away from zero to whole minor units, saturating at the int64 bounds.
func FromDecimal(d decimal.Decimal) Amount {
	d = d.Round(0)
	switch {
	case d.GreaterThan(maxAmount):
		return math.MaxInt64
	case d.LessThan(minAmount):
		return math.MinInt64
	}
	return Amount(d.IntPart())
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

// Sum adds all amounts, failing with ErrAmountOverflow instead of wrapping.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		next, err := total.Add(a)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
