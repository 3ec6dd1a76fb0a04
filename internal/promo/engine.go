package promo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

var (
	// ErrNotEligible is the parent of every eligibility failure below.
	ErrNotEligible = errors.New("promo not eligible")
	// ErrInactive is returned when the promo kill-switch is off.
	ErrInactive = fmt.Errorf("%w: promo inactive", ErrNotEligible)
	// ErrNotStarted is returned before the promo window opens.
	ErrNotStarted = fmt.Errorf("%w: promo not started", ErrNotEligible)
	// ErrExpired is returned after the promo window closes.
	ErrExpired = fmt.Errorf("%w: promo expired", ErrNotEligible)
	// ErrUsageLimitReached indicates the promo has exhausted its global usage quota.
	ErrUsageLimitReached = fmt.Errorf("%w: promo usage limit reached", ErrNotEligible)
	// ErrMinPurchaseUnmet indicates the subtotal is below the promo floor.
	ErrMinPurchaseUnmet = fmt.Errorf("%w: promo minimum purchase not met", ErrNotEligible)

	// ErrNotFound is returned when no promo matches the given code or id.
	ErrNotFound = errors.New("promo not found")
	// ErrDuplicateCode is returned when a promo code is already in use.
	ErrDuplicateCode = errors.New("promo code already used")
)

// DiscountType selects how the discount value is interpreted.
type DiscountType string

const (
	// Percentage discounts take DiscountValue percent of the subtotal.
	Percentage DiscountType = "Percentage"
	// Fixed discounts subtract DiscountValue currency units.
	Fixed DiscountType = "Fixed"
)

// ParseDiscountType accepts the canonical names case-insensitively.
func ParseDiscountType(v string) (DiscountType, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "percentage", "percent":
		return Percentage, true
	case "fixed", "fixed_amount":
		return Fixed, true
	}
	return "", false
}

// Promo is a coupon rule evaluated against a cart subtotal.
type Promo struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinPurchase   money.Amount    `json:"minPurchase"`
	MaxDiscount   *money.Amount   `json:"maxDiscount,omitempty"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	UsageLimit    *int            `json:"usageLimit,omitempty"`
	UsedCount     int             `json:"usedCount"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// FieldError reports a promo definition that violates a construction rule.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// NormalizeCode canonicalises a promo code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate enforces the rules a promo must satisfy before it is persisted.
func (p Promo) Validate() error {
	if NormalizeCode(p.Code) == "" {
		return &FieldError{Field: "code", Message: "code is required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &FieldError{Field: "name", Message: "name is required"}
	}
	switch p.DiscountType {
	case Percentage, Fixed:
	default:
		return &FieldError{Field: "discountType", Message: "discountType must be Percentage or Fixed"}
	}
	if p.DiscountValue.IsNegative() {
		return &FieldError{Field: "discountValue", Message: "discountValue must not be negative"}
	}
	if p.DiscountType == Percentage && p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return &FieldError{Field: "discountValue", Message: "percentage must be between 0 and 100"}
	}
	if !p.DiscountValue.Equal(p.DiscountValue.Round(2)) {
		return &FieldError{Field: "discountValue", Message: "discountValue allows at most 2 decimal places"}
	}
	if p.DiscountType == Fixed && !p.DiscountValue.Equal(p.DiscountValue.Truncate(0)) {
		return &FieldError{Field: "discountValue", Message: "fixed discounts must be whole currency units"}
	}
	if p.MinPurchase.IsNegative() {
		return &FieldError{Field: "minPurchase", Message: "minPurchase must not be negative"}
	}
	if p.MaxDiscount != nil && p.MaxDiscount.IsNegative() {
		return &FieldError{Field: "maxDiscount", Message: "maxDiscount must not be negative"}
	}
	if p.EndDate.Before(p.StartDate) {
		return &FieldError{Field: "endDate", Message: "endDate must not be before startDate"}
	}
	if p.UsageLimit != nil && *p.UsageLimit < 0 {
		return &FieldError{Field: "usageLimit", Message: "usageLimit must not be negative"}
	}
	if p.UsedCount < 0 {
		return &FieldError{Field: "usedCount", Message: "usedCount must not be negative"}
	}
	return nil
}

// Check returns the first eligibility rule the promo fails for the given subtotal and instant.
// Rules run in order: active flag, window (inclusive on both ends), usage limit, minimum purchase.
func Check(p Promo, subtotal money.Amount, now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if now.Before(p.StartDate) {
		return ErrNotStarted
	}
	if now.After(p.EndDate) {
		return ErrExpired
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return ErrUsageLimitReached
	}
	if subtotal < p.MinPurchase {
		return ErrMinPurchaseUnmet
	}
	return nil
}

// IsEligible reports whether the promo applies to subtotal at now.
func IsEligible(p Promo, subtotal money.Amount, now time.Time) bool {
	return Check(p, subtotal, now) == nil
}

// ComputeDiscount returns the discount the promo grants on subtotal. It does not re-check eligibility.
func ComputeDiscount(p Promo, subtotal money.Amount) money.Amount {
	if subtotal <= 0 || p.DiscountValue.Sign() <= 0 {
		return 0
	}
	switch p.DiscountType {
	case Percentage:
		discount := subtotal.MulRate(money.Percent(p.DiscountValue))
		if p.MaxDiscount != nil && discount > *p.MaxDiscount {
			discount = *p.MaxDiscount
		}
		return money.Max(discount, 0)
	case Fixed:
		return money.Min(money.FromDecimal(p.DiscountValue), subtotal)
	default:
		return 0
	}
}
