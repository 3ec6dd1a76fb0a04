package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

var ppn = money.MustRate("0.11")

func TestComputeOrderTotal(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: 75_000}}

	sum, err := ComputeOrderTotal(items, 25_000, ppn, 0)
	require.NoError(t, err)
	require.Equal(t, money.Amount(150_000), sum.Subtotal)
	require.Equal(t, money.Amount(16_500), sum.Tax)
	require.Equal(t, money.Amount(25_000), sum.Shipping)
	require.Equal(t, money.Amount(191_500), sum.Total)
}

func TestComputeOrderTotalDiscountFloorsAtZero(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: 75_000}}

	sum, err := ComputeOrderTotal(items, 25_000, ppn, 300_000)
	require.NoError(t, err)
	require.Equal(t, money.Zero, sum.Total)
	require.Equal(t, money.Amount(191_500), sum.Discount)
}

func TestComputeOrderTotalMultipleItems(t *testing.T) {
	items := []Item{
		{Qty: 1, UnitPrice: 120_000},
		{Qty: 3, UnitPrice: 45_000},
	}
	sum, err := ComputeOrderTotal(items, 0, money.MustRate("0"), 10_000)
	require.NoError(t, err)
	require.Equal(t, money.Amount(255_000), sum.Subtotal)
	require.Equal(t, money.Zero, sum.Tax)
	require.Equal(t, money.Amount(245_000), sum.Total)
}

func TestComputeOrderTotalRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		items    []Item
		shipping money.Amount
		discount money.Amount
		want     error
	}{
		{"empty", nil, 25_000, 0, ErrNoItems},
		{"zero qty", []Item{{Qty: 0, UnitPrice: 10}}, 25_000, 0, ErrInvalidQuantity},
		{"negative price", []Item{{Qty: 1, UnitPrice: -1}}, 25_000, 0, ErrNegativePrice},
		{"negative shipping", []Item{{Qty: 1, UnitPrice: 10}}, -1, 0, ErrNegativeInput},
		{"negative discount", []Item{{Qty: 1, UnitPrice: 10}}, 0, -5, ErrNegativeInput},
		{"line overflow", []Item{{Qty: 2, UnitPrice: math.MaxInt64/2 + 1}}, 25_000, 0, ErrAmountOverflow},
		{"line overflow by three", []Item{{Qty: 3, UnitPrice: math.MaxInt64 / 2}}, 25_000, 0, ErrAmountOverflow},
		{"subtotal overflow", []Item{{Qty: 1, UnitPrice: math.MaxInt64}, {Qty: 1, UnitPrice: 1}}, 0, 0, ErrAmountOverflow},
		{"total overflow", []Item{{Qty: 1, UnitPrice: math.MaxInt64 - 10}}, 25_000, 0, ErrAmountOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeOrderTotal(tc.items, tc.shipping, ppn, tc.discount)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestComputeOrderTotalMonotonicInDiscount(t *testing.T) {
	items := []Item{{Qty: 4, UnitPrice: 33_333}}
	prev := money.Amount(-1)
	for d := money.Amount(300_000); d >= 0; d -= 12_345 {
		sum, err := ComputeOrderTotal(items, 25_000, ppn, d)
		require.NoError(t, err)
		require.False(t, sum.Total.IsNegative())
		require.GreaterOrEqual(t, int64(sum.Total), int64(prev))
		prev = sum.Total
	}
}

func TestComputeOrderTotalIsDeterministic(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: 33_333}, {Qty: 1, UnitPrice: 7}}
	first, err := ComputeOrderTotal(items, 25_000, ppn, 12_345)
	require.NoError(t, err)
	second, err := ComputeOrderTotal(items, 25_000, ppn, 12_345)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, money.Amount(11_001), first.Tax)
}
