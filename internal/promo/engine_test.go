package promo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

var (
	windowStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
)

func newPromo(kind DiscountType, value string) Promo {
	return Promo{
		Code:          "HEMAT",
		Name:          "Hemat",
		DiscountType:  kind,
		DiscountValue: decimal.RequireFromString(value),
		StartDate:     windowStart,
		EndDate:       windowEnd,
		IsActive:      true,
	}
}

func amountPtr(v money.Amount) *money.Amount { return &v }

func intPtr(v int) *int { return &v }

func TestComputeDiscountPercentCapped(t *testing.T) {
	p := newPromo(Percentage, "20")
	p.MaxDiscount = amountPtr(50_000)
	if got := ComputeDiscount(p, 500_000); got != 50_000 {
		t.Fatalf("expected capped discount 50000, got %d", got)
	}
}

func TestComputeDiscountPercentUncapped(t *testing.T) {
	p := newPromo(Percentage, "20")
	if got := ComputeDiscount(p, 100_000); got != 20_000 {
		t.Fatalf("expected 20000, got %d", got)
	}
	p.MaxDiscount = amountPtr(50_000)
	if got := ComputeDiscount(p, 100_000); got != 20_000 {
		t.Fatalf("cap above raw discount must not change it, got %d", got)
	}
}

func TestComputeDiscountFixedClampedToSubtotal(t *testing.T) {
	p := newPromo(Fixed, "100000")
	if got := ComputeDiscount(p, 80_000); got != 80_000 {
		t.Fatalf("expected 80000, got %d", got)
	}
	if got := ComputeDiscount(p, 250_000); got != 100_000 {
		t.Fatalf("expected 100000, got %d", got)
	}
}

func TestComputeDiscountZeroValue(t *testing.T) {
	for _, kind := range []DiscountType{Percentage, Fixed} {
		if got := ComputeDiscount(newPromo(kind, "0"), 100_000); got != 0 {
			t.Fatalf("%s: expected 0, got %d", kind, got)
		}
	}
}

func TestComputeDiscountBounded(t *testing.T) {
	subtotals := []money.Amount{0, 1, 999, 150_000, 10_000_000}
	promos := []Promo{newPromo(Percentage, "100"), newPromo(Percentage, "33.3"), newPromo(Fixed, "5000")}
	for _, p := range promos {
		for _, s := range subtotals {
			d := ComputeDiscount(p, s)
			if d < 0 || d > s {
				t.Fatalf("%s %s on %d: discount %d out of bounds", p.DiscountType, p.DiscountValue, s, d)
			}
			if again := ComputeDiscount(p, s); again != d {
				t.Fatalf("discount is not deterministic: %d vs %d", d, again)
			}
		}
	}
}

func TestComputeDiscountRepeatable(t *testing.T) {
	cases := []struct {
		promo    Promo
		subtotal money.Amount
		want     money.Amount
	}{
		{newPromo(Percentage, "12.5"), 33_333, 4_167},
		{newPromo(Percentage, "33.33"), 10_001, 3_333},
		{newPromo(Fixed, "100000"), 80_000, 80_000},
	}
	for _, tc := range cases {
		first := ComputeDiscount(tc.promo, tc.subtotal)
		second := ComputeDiscount(tc.promo, tc.subtotal)
		if first != second || first != tc.want {
			t.Fatalf("%s %s on %d: got %d then %d, want %d", tc.promo.DiscountType, tc.promo.DiscountValue, tc.subtotal, first, second, tc.want)
		}
	}
}

func TestCheckMinPurchase(t *testing.T) {
	p := newPromo(Fixed, "10000")
	p.MinPurchase = 200_000
	now := windowStart.Add(time.Hour)
	if IsEligible(p, 150_000, now) {
		t.Fatal("expected subtotal below minimum to be ineligible")
	}
	if err := Check(p, 150_000, now); !errors.Is(err, ErrMinPurchaseUnmet) {
		t.Fatalf("expected ErrMinPurchaseUnmet, got %v", err)
	}
	if !IsEligible(p, 200_000, now) {
		t.Fatal("expected subtotal equal to minimum to be eligible")
	}
}

func TestCheckWindowBoundaries(t *testing.T) {
	p := newPromo(Fixed, "10000")
	cases := []struct {
		name string
		now  time.Time
		want error
	}{
		{"at start", windowStart, nil},
		{"before start", windowStart.Add(-time.Microsecond), ErrNotStarted},
		{"at end", windowEnd, nil},
		{"after end", windowEnd.Add(time.Microsecond), ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(p, 100_000, tc.now)
			if !errors.Is(err, tc.want) && !(err == nil && tc.want == nil) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCheckUsageLimit(t *testing.T) {
	p := newPromo(Fixed, "10000")
	p.UsageLimit = intPtr(5)
	now := windowStart.Add(time.Hour)

	p.UsedCount = 4
	if !IsEligible(p, 100_000, now) {
		t.Fatal("expected promo below limit to be eligible")
	}
	p.UsedCount = 5
	if err := Check(p, 100_000, now); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}

	p.UsageLimit = nil
	p.UsedCount = 1_000_000
	if !IsEligible(p, 100_000, now) {
		t.Fatal("expected unlimited promo to be eligible")
	}
}

func TestCheckInactiveWins(t *testing.T) {
	p := newPromo(Fixed, "10000")
	p.IsActive = false
	p.MinPurchase = 1_000_000
	err := Check(p, 1, windowEnd.Add(time.Hour))
	if !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive to be reported first, got %v", err)
	}
	if !errors.Is(err, ErrNotEligible) {
		t.Fatal("expected reasons to unwrap to ErrNotEligible")
	}
}

func TestValidate(t *testing.T) {
	valid := newPromo(Percentage, "20")
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid promo, got %v", err)
	}

	cases := map[string]func(p *Promo){
		"code":         func(p *Promo) { p.Code = "  " },
		"name":         func(p *Promo) { p.Name = "" },
		"discountType": func(p *Promo) { p.DiscountType = "Bogus" },
		"negative":     func(p *Promo) { p.DiscountValue = decimal.NewFromInt(-1) },
		"over hundred": func(p *Promo) { p.DiscountValue = decimal.NewFromInt(101) },
		"window":       func(p *Promo) { p.EndDate = p.StartDate.Add(-time.Second) },
		"usageLimit":   func(p *Promo) { p.UsageLimit = intPtr(-1) },
		"minPurchase":  func(p *Promo) { p.MinPurchase = -1 },
		"maxDiscount":  func(p *Promo) { p.MaxDiscount = amountPtr(-1) },
		"precision":    func(p *Promo) { p.DiscountValue = decimal.RequireFromString("12.345") },
		"fixed cents":  func(p *Promo) { p.DiscountType, p.DiscountValue = Fixed, decimal.RequireFromString("100.5") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := newPromo(Percentage, "20")
			mutate(&p)
			var fieldErr *FieldError
			if err := p.Validate(); !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
		})
	}

	fixed := newPromo(Fixed, "150000")
	if err := fixed.Validate(); err != nil {
		t.Fatalf("fixed values above 100 are allowed, got %v", err)
	}

	twoPlaces := newPromo(Percentage, "12.50")
	if err := twoPlaces.Validate(); err != nil {
		t.Fatalf("two decimal places are allowed, got %v", err)
	}
}

func TestParseDiscountType(t *testing.T) {
	if kind, ok := ParseDiscountType("percentage"); !ok || kind != Percentage {
		t.Fatalf("unexpected %v %v", kind, ok)
	}
	if kind, ok := ParseDiscountType("FIXED"); !ok || kind != Fixed {
		t.Fatalf("unexpected %v %v", kind, ok)
	}
	if _, ok := ParseDiscountType("bogo"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
}
