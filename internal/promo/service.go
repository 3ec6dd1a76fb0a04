package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

// ErrConsumeRejected is returned by Redeem when a concurrent checkout took the
// last usage slot between the eligibility check and the increment.
var ErrConsumeRejected = fmt.Errorf("%w: slot taken concurrently", ErrUsageLimitReached)

// Querier is the persistence required for promo administration and lookup.
type Querier interface {
	CreatePromo(ctx context.Context, arg store.PromoParams) (store.Promo, error)
	UpdatePromo(ctx context.Context, id uuid.UUID, arg store.PromoParams) (store.Promo, error)
	GetPromo(ctx context.Context, id uuid.UUID) (store.Promo, error)
	GetPromoByCode(ctx context.Context, code string) (store.Promo, error)
	ListPromos(ctx context.Context, limit, offset int) ([]store.Promo, error)
	CountPromos(ctx context.Context) (int64, error)
	DeletePromo(ctx context.Context, id uuid.UUID) error
}

// Ledger is the transactional subset used while placing an order.
type Ledger interface {
	GetPromoByCode(ctx context.Context, code string) (store.Promo, error)
	ConsumePromo(ctx context.Context, id uuid.UUID) (bool, error)
}

// Input is the writable shape of a promo accepted by Create and Update.
type Input struct {
	Code          string          `json:"code" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	DiscountType  string          `json:"discountType" validate:"required"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MinPurchase   money.Amount    `json:"minPurchase" validate:"gte=0"`
	MaxDiscount   *money.Amount   `json:"maxDiscount" validate:"omitempty,gte=0"`
	StartDate     time.Time       `json:"startDate" validate:"required"`
	EndDate       time.Time       `json:"endDate" validate:"required"`
	UsageLimit    *int            `json:"usageLimit" validate:"omitempty,gte=0"`
	IsActive      *bool           `json:"isActive"`
}

// Quote is the preview returned by Validate.
type Quote struct {
	PromoID    string       `json:"promoId"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Discount   money.Amount `json:"discount"`
	FinalTotal money.Amount `json:"finalTotal"`
}

// Redemption is a promo consumed inside an order transaction.
type Redemption struct {
	Promo    Promo
	Discount money.Amount
}

// Service manages promos and evaluates them against carts.
type Service struct {
	Q      Querier
	Now    func() time.Time
	Logger zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// List returns a page of promos and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Promo, int64, error) {
	rows, err := s.Q.ListPromos(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Q.CountPromos(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Promo, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out, total, nil
}

// Get returns a promo by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Promo, error) {
	row, err := s.Q.GetPromo(ctx, id)
	if err != nil {
		return Promo{}, translate(err)
	}
	return FromRow(row), nil
}

// Create validates and persists a new promo.
func (s *Service) Create(ctx context.Context, in Input) (Promo, error) {
	p, err := in.toPromo()
	if err != nil {
		return Promo{}, err
	}
	row, err := s.Q.CreatePromo(ctx, toParams(p))
	if err != nil {
		return Promo{}, translate(err)
	}
	return FromRow(row), nil
}

// Update replaces the writable fields of a promo. The usage counter is kept,
// so the new limit may not fall below it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Promo, error) {
	p, err := in.toPromo()
	if err != nil {
		return Promo{}, err
	}
	current, err := s.Q.GetPromo(ctx, id)
	if err != nil {
		return Promo{}, translate(err)
	}
	if p.UsageLimit != nil && *p.UsageLimit < current.UsedCount {
		return Promo{}, &FieldError{Field: "usageLimit", Message: fmt.Sprintf("usageLimit must be at least the current usedCount (%d)", current.UsedCount)}
	}
	row, err := s.Q.UpdatePromo(ctx, id, toParams(p))
	if err != nil {
		return Promo{}, translate(err)
	}
	return FromRow(row), nil
}

// Delete removes a promo.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(s.Q.DeletePromo(ctx, id))
}

// Validate previews code against orderTotal without consuming it.
func (s *Service) Validate(ctx context.Context, code string, orderTotal money.Amount) (Quote, error) {
	row, err := s.Q.GetPromoByCode(ctx, NormalizeCode(code))
	if err != nil {
		err = translate(err)
		obs.ObservePromoValidation(Reason(err))
		return Quote{}, err
	}
	p := FromRow(row)
	if err := Check(p, orderTotal, s.now()); err != nil {
		obs.ObservePromoValidation(Reason(err))
		return Quote{}, err
	}
	discount := ComputeDiscount(p, orderTotal)
	obs.ObservePromoValidation("valid")
	return Quote{
		PromoID:    p.ID,
		Code:       p.Code,
		Name:       p.Name,
		Discount:   discount,
		FinalTotal: orderTotal.SubFloor(discount),
	}, nil
}

// Redeem re-reads the promo through q, checks it against subtotal and takes one
// usage slot. q must be bound to the transaction that persists the order.
func (s *Service) Redeem(ctx context.Context, q Ledger, code string, subtotal money.Amount) (Redemption, error) {
	row, err := q.GetPromoByCode(ctx, NormalizeCode(code))
	if err != nil {
		return Redemption{}, translate(err)
	}
	p := FromRow(row)
	if err := Check(p, subtotal, s.now()); err != nil {
		obs.ObservePromoRedemption(Reason(err))
		return Redemption{}, err
	}
	ok, err := q.ConsumePromo(ctx, row.ID)
	if err != nil {
		return Redemption{}, err
	}
	if !ok {
		obs.ObservePromoRedemption("race_lost")
		s.Logger.Warn().Str("promo_code", p.Code).Msg("promo slot taken concurrently")
		return Redemption{}, ErrConsumeRejected
	}
	obs.ObservePromoRedemption("consumed")
	p.UsedCount++
	return Redemption{Promo: p, Discount: ComputeDiscount(p, subtotal)}, nil
}

// Reason maps promo errors to a short machine-readable label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUsageLimitReached):
		return "usage_limit_reached"
	case errors.Is(err, ErrMinPurchaseUnmet):
		return "min_purchase_unmet"
	default:
		return "error"
	}
}

// FromRow converts a stored promo into the domain type.
func FromRow(row store.Promo) Promo {
	p := Promo{
		ID:            row.ID.String(),
		Code:          row.Code,
		Name:          row.Name,
		DiscountType:  DiscountType(row.DiscountType),
		DiscountValue: row.DiscountValue,
		MinPurchase:   row.MinPurchase,
		MaxDiscount:   row.MaxDiscount,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		UsageLimit:    row.UsageLimit,
		UsedCount:     row.UsedCount,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
	}
	if row.Description != nil {
		p.Description = *row.Description
	}
	return p
}

func toParams(p Promo) store.PromoParams {
	params := store.PromoParams{
		Code:          p.Code,
		Name:          p.Name,
		DiscountType:  string(p.DiscountType),
		DiscountValue: p.DiscountValue,
		MinPurchase:   p.MinPurchase,
		MaxDiscount:   p.MaxDiscount,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		UsageLimit:    p.UsageLimit,
		IsActive:      p.IsActive,
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		params.Description = &d
	}
	return params
}

func (in Input) toPromo() (Promo, error) {
	dt, ok := ParseDiscountType(in.DiscountType)
	if !ok {
		return Promo{}, &FieldError{Field: "discountType", Message: "discountType must be Percentage or Fixed"}
	}
	p := Promo{
		Code:          NormalizeCode(in.Code),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		DiscountType:  dt,
		DiscountValue: in.DiscountValue,
		MinPurchase:   in.MinPurchase,
		MaxDiscount:   in.MaxDiscount,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		UsageLimit:    in.UsageLimit,
		IsActive:      true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := p.Validate(); err != nil {
		return Promo{}, err
	}
	return p, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrDuplicateCode, err)
	default:
		return err
	}
}
