//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(t, store.MigrateUp(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func limitedPromo(limit int) store.PromoParams {
	return store.PromoParams{
		Code:          "hemat10",
		Name:          "Hemat 10",
		DiscountType:  "Percentage",
		DiscountValue: decimal.NewFromInt(10),
		StartDate:     time.Now().Add(-time.Hour),
		EndDate:       time.Now().Add(time.Hour),
		UsageLimit:    &limit,
		IsActive:      true,
	}
}

func TestPromoCodeIsCaseInsensitive(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	q := store.New(pool)

	created, err := q.CreatePromo(ctx, limitedPromo(3))
	require.NoError(t, err)
	require.Equal(t, "HEMAT10", created.Code)
	require.True(t, created.DiscountValue.Equal(decimal.NewFromInt(10)))

	found, err := q.GetPromoByCode(ctx, "Hemat10")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = q.CreatePromo(ctx, limitedPromo(1))
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = q.GetPromoByCode(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumePromoNeverExceedsLimit(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	q := store.New(pool)

	p, err := q.CreatePromo(ctx, limitedPromo(3))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.RunInTx(ctx, pool, store.DefaultTxOptions(), func(tx *store.Queries) error {
				ok, err := tx.ConsumePromo(ctx, p.ID)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("limit reached")
				}
				return nil
			})
			if err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(3), granted.Load())
	after, err := q.GetPromo(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 3, after.UsedCount)
}

func TestOrderRoundTripAndStats(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	q := store.New(pool)

	user, err := q.CreateUser(ctx, store.CreateUserParams{Email: "Budi@Example.com", PasswordHash: "x", FullName: "Budi", Role: "Customer"})
	require.NoError(t, err)
	require.Equal(t, "budi@example.com", user.Email)

	place := func(status string, items ...store.OrderItem) store.Order {
		var subtotal money.Amount
		for _, it := range items {
			subtotal += it.UnitPrice.MulQty(it.Quantity)
		}
		var order store.Order
		err := store.RunInTx(ctx, pool, store.DefaultTxOptions(), func(tx *store.Queries) error {
			var err error
			order, err = tx.CreateOrder(ctx, store.CreateOrderParams{
				UserID: &user.ID, CustomerName: "Budi", ShippingAddress: "Jl. Merdeka 1", PhoneNumber: "0812",
				Subtotal: subtotal, TotalAmount: subtotal, Status: status,
			})
			if err != nil {
				return err
			}
			for i := range items {
				items[i].OrderID = order.ID
			}
			return tx.InsertOrderItems(ctx, items)
		})
		require.NoError(t, err)
		return order
	}

	first := place("Pending", store.OrderItem{ProductID: "p1", ProductName: "Kemeja", UnitPrice: 75_000, Quantity: 2})
	place("Paid", store.OrderItem{ProductID: "p2", ProductName: "Celana", UnitPrice: 200_000, Quantity: 1})
	place("Cancelled", store.OrderItem{ProductID: "p3", ProductName: "Jaket", UnitPrice: 900_000, Quantity: 1})

	items, err := q.ListOrderItems(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	require.Len(t, items[first.ID], 1)
	require.Equal(t, money.Amount(75_000), items[first.ID][0].UnitPrice)

	totals, err := q.SalesTotals(ctx, "Cancelled")
	require.NoError(t, err)
	require.Equal(t, money.Amount(350_000), totals.Revenue)
	require.Equal(t, int64(2), totals.Orders)
	require.Equal(t, int64(1), totals.Customers)

	top, err := q.TopProducts(ctx, "Cancelled", 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Celana", top[0].Name)
	require.Equal(t, int64(2), top[1].Sales)

	updated, err := q.UpdateOrderStatus(ctx, first.ID, "Shipped")
	require.NoError(t, err)
	require.Equal(t, "Shipped", updated.Status)
}
