package pricing

import (
	"errors"
	"fmt"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

var (
	// ErrNoItems is returned when an order has no line items.
	ErrNoItems = errors.New("pricing: order has no items")
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	// ErrNegativePrice is returned when a line price is below zero.
	ErrNegativePrice = errors.New("pricing: price must not be negative")
	// ErrNegativeInput is returned for negative shipping, tax rate or discount.
	ErrNegativeInput = errors.New("pricing: negative shipping, tax rate or discount")
	// ErrAmountOverflow is returned when a line, the subtotal or the total exceeds the Amount range.
	ErrAmountOverflow = money.ErrAmountOverflow
)

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice money.Amount
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal money.Amount `json:"subtotal"`
	Shipping money.Amount `json:"shippingCost"`
	Tax      money.Amount `json:"tax"`
	Discount money.Amount `json:"discount"`
	Total    money.Amount `json:"totalAmount"`
}

// Subtotal sums price*qty across items after validating each line.
func Subtotal(items []Item) (money.Amount, error) {
	if len(items) == 0 {
		return 0, ErrNoItems
	}
	var subtotal money.Amount
	for i, it := range items {
		if it.Qty < 1 {
			return 0, fmt.Errorf("%w: item %d has qty %d", ErrInvalidQuantity, i, it.Qty)
		}
		if it.UnitPrice.IsNegative() {
			return 0, fmt.Errorf("%w: item %d", ErrNegativePrice, i)
		}
		line, err := it.UnitPrice.MulQty(it.Qty)
		if err != nil {
			return 0, fmt.Errorf("pricing: item %d: %w", i, err)
		}
		if subtotal, err = subtotal.Add(line); err != nil {
			return 0, fmt.Errorf("pricing: subtotal at item %d: %w", i, err)
		}
	}
	return subtotal, nil
}

// ComputeOrderTotal prices an order. Tax is charged on the pre-discount subtotal
// and the discount is applied last, flooring the total at zero.
// Summary.Discount reports the portion of discount actually absorbed.
func ComputeOrderTotal(items []Item, shipping money.Amount, taxRate money.Rate, discount money.Amount) (Summary, error) {
	subtotal, err := Subtotal(items)
	if err != nil {
		return Summary{}, err
	}
	if shipping.IsNegative() || taxRate.IsNegative() || discount.IsNegative() {
		return Summary{}, ErrNegativeInput
	}
	tax, err := subtotal.MulRateChecked(taxRate)
	if err != nil {
		return Summary{}, fmt.Errorf("pricing: tax: %w", err)
	}
	pre, err := money.Sum(subtotal, shipping, tax)
	if err != nil {
		return Summary{}, fmt.Errorf("pricing: total: %w", err)
	}
	applied := money.Min(discount, pre)
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: applied,
		Total:    pre.SubFloor(discount),
	}, nil
}
