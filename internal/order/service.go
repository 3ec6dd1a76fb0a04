package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/events"
	"github.com/noah-isme/tokobaju-api/internal/lock"
	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/obs"
	"github.com/noah-isme/tokobaju-api/internal/pricing"
	"github.com/noah-isme/tokobaju-api/internal/promo"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

var (
	// ErrNotFound is returned when no order matches the id.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned for blank or oversized status labels.
	ErrInvalidStatus = errors.New("invalid order status")
)

// StatusPending is assigned to every new order.
const StatusPending = "Pending"

// StatusCancelled orders are excluded from sales statistics.
const StatusCancelled = "Cancelled"

var knownStatuses = []string{StatusPending, "Paid", "Processing", "Shipped", "Completed", StatusCancelled}

// CanonicalStatus trims s and matches known labels case-insensitively.
// Unknown labels are kept verbatim since the status set is open.
func CanonicalStatus(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 32 {
		return "", ErrInvalidStatus
	}
	for _, known := range knownStatuses {
		if strings.EqualFold(s, known) {
			return known, nil
		}
	}
	return s, nil
}

// Reader is the non-transactional persistence used by Service.
type Reader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrderItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]store.OrderItem, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]store.Order, error)
	CountOrders(ctx context.Context, status string) (int64, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]store.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (store.Order, error)
}

// Writer is bound to the transaction that persists a new order.
type Writer interface {
	promo.Ledger
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	InsertOrderItems(ctx context.Context, items []store.OrderItem) error
}

// TxFunc runs fn inside a database transaction.
type TxFunc func(ctx context.Context, fn func(w Writer) error) error

// PgTx adapts store.RunInTx to TxFunc.
func PgTx(db store.TxBeginner, opts store.TxOptions) TxFunc {
	return func(ctx context.Context, fn func(w Writer) error) error {
		return store.RunInTx(ctx, db, opts, func(q *store.Queries) error { return fn(q) })
	}
}

// Locker serialises checkouts per owner; lock.Locker satisfies it.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter publishes domain events; *events.Bus satisfies it.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (store.DomainEvent, error)
}

// StatsInvalidator drops cached sales statistics after orders change.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service places and manages orders.
type Service struct {
	Q        Reader
	Tx       TxFunc
	Promos   *promo.Service
	Shipping money.Amount
	TaxRate  money.Rate

	Locker   Locker
	LockTTL  time.Duration
	Events   Emitter
	Activity activity.Recorder
	Stats    StatsInvalidator
	Metrics  *Instruments
	Logger   zerolog.Logger
}

// Create recomputes the order server side, redeems the promo and persists the
// order and its items in one transaction. Client-supplied totals are ignored.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	items := make([]pricing.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, pricing.Item{Qty: it.Quantity, UnitPrice: it.Price})
	}
	subtotal, err := pricing.Subtotal(items)
	if err != nil {
		return Order{}, err
	}

	var userID *uuid.UUID
	if raw := strings.TrimSpace(in.UserID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Order{}, fmt.Errorf("order: user id: %w", err)
		}
		userID = &id
	}

	var (
		row       store.Order
		rows      []store.OrderItem
		redeemed  bool
		promoCode = strings.TrimSpace(in.PromoCode)
	)
	place := func(ctx context.Context) error {
		return s.Tx(ctx, func(w Writer) error {
			var discount money.Amount
			var code *string
			redeemed = false
			if promoCode != "" {
				if s.Promos == nil {
					return errors.New("order: promo service not configured")
				}
				r, err := s.Promos.Redeem(ctx, w, promoCode, subtotal)
				if err != nil {
					return err
				}
				discount = r.Discount
				code = &r.Promo.Code
				redeemed = true
			}
			summary, err := pricing.ComputeOrderTotal(items, s.Shipping, s.TaxRate, discount)
			if err != nil {
				return err
			}
			row, err = w.CreateOrder(ctx, store.CreateOrderParams{
				UserID:          userID,
				CustomerName:    strings.TrimSpace(in.CustomerName),
				ShippingAddress: strings.TrimSpace(in.ShippingAddress),
				PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
				Subtotal:        summary.Subtotal,
				ShippingCost:    summary.Shipping,
				Tax:             summary.Tax,
				PromoCode:       code,
				DiscountAmount:  summary.Discount,
				TotalAmount:     summary.Total,
				Status:          StatusPending,
			})
			if err != nil {
				return err
			}
			rows = toItemRows(row.ID, in.Items)
			return w.InsertOrderItems(ctx, rows)
		})
	}

	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, lock.CheckoutKey(checkoutOwner(userID, in.PhoneNumber)), s.LockTTL, place)
	} else {
		err = place(ctx)
	}
	if err != nil {
		return Order{}, err
	}

	out := fromRow(row, rows)
	s.afterCreate(ctx, out, redeemed)
	return out, nil
}

func (s *Service) afterCreate(ctx context.Context, o Order, redeemed bool) {
	obs.ObserveOrderCreated(redeemed, o.TotalAmount.Int64())
	s.Metrics.record(ctx, o.TotalAmount)
	log := s.Logger.With().Str("order_id", o.ID).Int64("total_amount", o.TotalAmount.Int64()).Logger()

	if s.Events != nil {
		aggregate := uuid.MustParse(o.ID)
		if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, aggregate, o); err != nil {
			log.Warn().Err(err).Msg("emit order.created failed")
		}
		if redeemed && o.PromoCode != nil {
			payload := map[string]any{"code": *o.PromoCode, "discount": o.DiscountAmount}
			if _, err := s.Events.Emit(ctx, events.TopicPromoRedeemed, aggregate, payload); err != nil {
				log.Warn().Err(err).Msg("emit promo.redeemed failed")
			}
		}
	}
	if s.Activity != nil {
		entry := activity.Entry{
			UserName: o.CustomerName,
			Action:   activity.ActionCreateOrder,
			Details:  fmt.Sprintf("Order %s placed, total %d", o.ID, o.TotalAmount),
		}
		if o.UserID != nil {
			entry.UserID = *o.UserID
		}
		if err := s.Activity.Record(ctx, entry); err != nil {
			log.Warn().Err(err).Msg("record order activity failed")
		}
	}
	s.invalidateStats(ctx)
	log.Info().Bool("promo", redeemed).Msg("order created")
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("invalidate sales stats failed")
	}
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row, err := s.Q.GetOrder(ctx, id)
	if err != nil {
		return Order{}, translate(err)
	}
	items, err := s.Q.ListOrderItems(ctx, []uuid.UUID{row.ID})
	if err != nil {
		return Order{}, err
	}
	return fromRow(row, items[row.ID]), nil
}

// List returns a page of orders, optionally filtered by status, with the total count.
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]Order, int64, error) {
	status = strings.TrimSpace(status)
	if status != "" {
		canonical, err := CanonicalStatus(status)
		if err != nil {
			return nil, 0, err
		}
		status = canonical
	}
	rows, err := s.Q.ListOrders(ctx, store.OrderFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Q.CountOrders(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.withItems(ctx, rows)
	return out, total, err
}

// ListByUser returns every order placed by userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := s.Q.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, rows)
}

// UpdateStatus sets any status label on an order. Transitions are not restricted.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, actorID string) (Order, error) {
	status, err := CanonicalStatus(status)
	if err != nil {
		return Order{}, err
	}
	before, err := s.Q.GetOrder(ctx, id)
	if err != nil {
		return Order{}, translate(err)
	}
	row, err := s.Q.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return Order{}, translate(err)
	}
	if s.Events != nil && before.Status != row.Status {
		payload := map[string]string{"status": row.Status, "previous": before.Status, "actorId": actorID}
		if _, err := s.Events.Emit(ctx, events.TopicOrderStatusChanged, row.ID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", row.ID.String()).Msg("emit order.status_changed failed")
		}
	}
	if before.Status != row.Status && (before.Status == StatusCancelled || row.Status == StatusCancelled) {
		s.invalidateStats(ctx)
	}
	return s.Get(ctx, row.ID)
}

func (s *Service) withItems(ctx context.Context, rows []store.Order) ([]Order, error) {
	out := make([]Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	items, err := s.Q.ListOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, fromRow(r, items[r.ID]))
	}
	return out, nil
}

func checkoutOwner(userID *uuid.UUID, phone string) string {
	if userID != nil {
		return userID.String()
	}
	return "guest:" + strings.TrimSpace(phone)
}

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
