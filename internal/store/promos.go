package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Promo is a row of the promos table.
type Promo struct {
	ID            uuid.UUID
	Code          string
	Name          string
	Description   *string
	DiscountType  string
	DiscountValue decimal.Decimal
	MinPurchase   money.Amount
	MaxDiscount   *money.Amount
	StartDate     time.Time
	EndDate       time.Time
	UsageLimit    *int
	UsedCount     int
	IsActive      bool
	CreatedAt     time.Time
}

// PromoParams carries the writable promo columns.
type PromoParams struct {
	Code          string
	Name          string
	Description   *string
	DiscountType  string
	DiscountValue decimal.Decimal
	MinPurchase   money.Amount
	MaxDiscount   *money.Amount
	StartDate     time.Time
	EndDate       time.Time
	UsageLimit    *int
	IsActive      bool
}

const promoColumns = `id, code, name, description, discount_type, discount_value, min_purchase, max_discount,
start_date, end_date, usage_limit, used_count, is_active, created_at`

func scanPromo(row pgx.Row) (Promo, error) {
	var p Promo
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.DiscountType, &p.DiscountValue,
		&p.MinPurchase, &p.MaxDiscount, &p.StartDate, &p.EndDate, &p.UsageLimit, &p.UsedCount,
		&p.IsActive, &p.CreatedAt)
	return p, err
}

// CreatePromo inserts a promo. Codes are matched case-insensitively.
func (q *Queries) CreatePromo(ctx context.Context, arg PromoParams) (Promo, error) {
	row := q.db.QueryRow(ctx, `INSERT INTO promos (code, name, description, discount_type, discount_value,
min_purchase, max_discount, start_date, end_date, usage_limit, is_active)
VALUES (upper($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+promoColumns,
		arg.Code, arg.Name, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.MinPurchase, arg.MaxDiscount, arg.StartDate, arg.EndDate, arg.UsageLimit, arg.IsActive)
	p, err := scanPromo(row)
	return p, wrapErr("create promo", err)
}

// UpdatePromo overwrites the writable columns. used_count is left untouched.
func (q *Queries) UpdatePromo(ctx context.Context, id uuid.UUID, arg PromoParams) (Promo, error) {
	row := q.db.QueryRow(ctx, `UPDATE promos SET code = upper($2), name = $3, description = $4,
discount_type = $5, discount_value = $6, min_purchase = $7, max_discount = $8,
start_date = $9, end_date = $10, usage_limit = $11, is_active = $12
WHERE id = $1
RETURNING `+promoColumns,
		id, arg.Code, arg.Name, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.MinPurchase, arg.MaxDiscount, arg.StartDate, arg.EndDate, arg.UsageLimit, arg.IsActive)
	p, err := scanPromo(row)
	return p, wrapErr("update promo", err)
}

// GetPromo fetches a promo by id.
func (q *Queries) GetPromo(ctx context.Context, id uuid.UUID) (Promo, error) {
	p, err := scanPromo(q.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promos WHERE id = $1`, id))
	return p, wrapErr("get promo", err)
}

// GetPromoByCode fetches a promo by code, ignoring case.
func (q *Queries) GetPromoByCode(ctx context.Context, code string) (Promo, error) {
	p, err := scanPromo(q.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promos WHERE upper(code) = upper($1)`, code))
	return p, wrapErr("get promo by code", err)
}

// ListPromos returns promos newest first.
func (q *Queries) ListPromos(ctx context.Context, limit, offset int) ([]Promo, error) {
	limit, offset = clampLimit(limit, offset)
	rows, err := q.db.Query(ctx, `SELECT `+promoColumns+` FROM promos ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, wrapErr("list promos", err)
	}
	defer rows.Close()
	out := make([]Promo, 0, limit)
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, wrapErr("list promos", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("list promos", rows.Err())
}

// CountPromos returns the total number of promos.
func (q *Queries) CountPromos(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM promos`).Scan(&total)
	return total, wrapErr("count promos", err)
}

// DeletePromo removes a promo by id.
func (q *Queries) DeletePromo(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM promos WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete promo", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("delete promo", pgx.ErrNoRows)
	}
	return nil
}

// ConsumePromo increments used_count unless the usage limit is already reached.
// It reports false when no slot was left.
func (q *Queries) ConsumePromo(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `UPDATE promos SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return false, wrapErr("consume promo", err)
	}
	return tag.RowsAffected() == 1, nil
}
