package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rate is an exact decimal multiplier such as a tax rate (0.11) or a percentage discount (0.20).
type Rate struct {
	d decimal.Decimal
}

// NewRate wraps a decimal as a Rate.
func NewRate(d decimal.Decimal) Rate { return Rate{d: d} }

// ParseRate parses a decimal string such as "0.11".
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Rate{}, fmt.Errorf("money: parse rate %q: %w", s, err)
	}
	return Rate{d: d}, nil
}

// MustRate is like ParseRate but panics on malformed input.
func MustRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Percent converts a percentage value (20 means 20%) to a Rate.
func Percent(v decimal.Decimal) Rate { return Rate{d: v.Div(hundred)} }

// Decimal returns the underlying decimal.
func (r Rate) Decimal() decimal.Decimal { return r.d }

// IsNegative reports whether the rate is below zero.
func (r Rate) IsNegative() bool { return r.d.IsNegative() }

// IsZero reports whether the rate is zero.
func (r Rate) IsZero() bool { return r.d.IsZero() }

func (r Rate) String() string { return r.d.String() }

// MarshalJSON renders the rate as a JSON number.
func (r Rate) MarshalJSON() ([]byte, error) { return []byte(r.d.String()), nil }

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	r.d = d
	return nil
}
