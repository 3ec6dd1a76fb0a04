package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Order is a row of the orders table.
type Order struct {
	ID              uuid.UUID
	UserID          *uuid.UUID
	CustomerName    string
	ShippingAddress string
	PhoneNumber     string
	Subtotal        money.Amount
	ShippingCost    money.Amount
	Tax             money.Amount
	PromoCode       *string
	DiscountAmount  money.Amount
	TotalAmount     money.Amount
	Status          string
	CreatedAt       time.Time
}

// OrderItem is a row of the order_items table.
type OrderItem struct {
	OrderID     uuid.UUID
	ProductID   string
	ProductName string
	UnitPrice   money.Amount
	Quantity    int
	Size        *string
	ImageURL    *string
}

// CreateOrderParams carries the columns of a new order.
type CreateOrderParams struct {
	UserID          *uuid.UUID
	CustomerName    string
	ShippingAddress string
	PhoneNumber     string
	Subtotal        money.Amount
	ShippingCost    money.Amount
	Tax             money.Amount
	PromoCode       *string
	DiscountAmount  money.Amount
	TotalAmount     money.Amount
	Status          string
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status string
	Limit  int
	Offset int
}

// SalesTotals aggregates non-cancelled orders.
type SalesTotals struct {
	Revenue   money.Amount
	Orders    int64
	Customers int64
}

// ProductSales is one line of the top products ranking.
type ProductSales struct {
	Name    string
	Sales   int64
	Revenue money.Amount
}

const orderColumns = `id, user_id, customer_name, shipping_address, phone_number, subtotal, shipping_cost, tax,
promo_code, discount_amount, total_amount, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.ShippingAddress, &o.PhoneNumber, &o.Subtotal,
		&o.ShippingCost, &o.Tax, &o.PromoCode, &o.DiscountAmount, &o.TotalAmount, &o.Status, &o.CreatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows, op string) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, o)
	}
	return out, wrapErr(op, rows.Err())
}

// CreateOrder inserts an order header.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `INSERT INTO orders (user_id, customer_name, shipping_address, phone_number,
subtotal, shipping_cost, tax, promo_code, discount_amount, total_amount, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+orderColumns,
		arg.UserID, arg.CustomerName, arg.ShippingAddress, arg.PhoneNumber, arg.Subtotal, arg.ShippingCost,
		arg.Tax, arg.PromoCode, arg.DiscountAmount, arg.TotalAmount, arg.Status))
	return o, wrapErr("create order", err)
}

// InsertOrderItems writes all items of an order in one batch.
func (q *Queries) InsertOrderItems(ctx context.Context, items []OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, size, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, it.OrderID, it.ProductID, it.ProductName, it.UnitPrice, it.Quantity, it.Size, it.ImageURL)
	}
	results := q.db.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return wrapErr("insert order item", err)
		}
	}
	return wrapErr("insert order items", results.Close())
}

// GetOrder fetches an order header by id.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	return o, wrapErr("get order", err)
}

// ListOrderItems returns the items of the given orders keyed by order id.
func (q *Queries) ListOrderItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	out := make(map[uuid.UUID][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx, `SELECT order_id, product_id, product_name, unit_price, quantity, size, image_url
FROM order_items WHERE order_id = ANY($1) ORDER BY id ASC`, orderIDs)
	if err != nil {
		return nil, wrapErr("list order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.Size, &it.ImageURL); err != nil {
			return nil, wrapErr("list order items", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, wrapErr("list order items", rows.Err())
}

// ListOrders returns orders newest first, optionally filtered by status.
func (q *Queries) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	limit, offset := clampLimit(f.Limit, f.Offset)
	var (
		rows pgx.Rows
		err  error
	)
	if f.Status != "" {
		rows, err = q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, f.Status, limit, offset)
	} else {
		rows, err = q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, wrapErr("list orders", err)
	}
	return collectOrders(rows, "list orders")
}

// CountOrders counts orders, optionally filtered by status.
func (q *Queries) CountOrders(ctx context.Context, status string) (int64, error) {
	var total int64
	var err error
	if status != "" {
		err = q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&total)
	} else {
		err = q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total)
	}
	return total, wrapErr("count orders", err)
}

// ListOrdersByUser returns a user's orders newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrapErr("list orders by user", err)
	}
	return collectOrders(rows, "list orders by user")
}

// UpdateOrderStatus sets the status label of an order.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `UPDATE orders SET status = $2 WHERE id = $1 RETURNING `+orderColumns, id, status))
	return o, wrapErr("update order status", err)
}

// SalesTotals sums revenue, orders and distinct customers over orders not in excludeStatus.
func (q *Queries) SalesTotals(ctx context.Context, excludeStatus string) (SalesTotals, error) {
	var t SalesTotals
	err := q.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0)::BIGINT, COUNT(*), COUNT(DISTINCT user_id)
FROM orders WHERE status <> $1`, excludeStatus).Scan(&t.Revenue, &t.Orders, &t.Customers)
	return t, wrapErr("sales totals", err)
}

// TopProducts ranks product names by revenue over orders not in excludeStatus.
func (q *Queries) TopProducts(ctx context.Context, excludeStatus string, limit int) ([]ProductSales, error) {
	rows, err := q.db.Query(ctx, `SELECT oi.product_name, SUM(oi.quantity)::BIGINT, SUM(oi.quantity * oi.unit_price)::BIGINT AS revenue
FROM order_items oi JOIN orders o ON o.id = oi.order_id
WHERE o.status <> $1
GROUP BY oi.product_name
ORDER BY revenue DESC, oi.product_name ASC
LIMIT $2`, excludeStatus, limit)
	if err != nil {
		return nil, wrapErr("top products", err)
	}
	defer rows.Close()
	var out []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.Name, &ps.Sales, &ps.Revenue); err != nil {
			return nil, wrapErr("top products", err)
		}
		out = append(out, ps)
	}
	return out, wrapErr("top products", rows.Err())
}
