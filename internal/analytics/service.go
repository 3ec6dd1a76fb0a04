package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

const (
	statsKey      = "an:sales:stats"
	topLimit      = 5
	excludeStatus = "Cancelled"
)

// Querier defines the database access required for sales statistics.
type Querier interface {
	SalesTotals(ctx context.Context, excludeStatus string) (store.SalesTotals, error)
	TopProducts(ctx context.Context, excludeStatus string, limit int) ([]store.ProductSales, error)
}

// ProductSales is one entry of the top products ranking.
type ProductSales struct {
	Name    string       `json:"name"`
	Sales   int64        `json:"sales"`
	Revenue money.Amount `json:"revenue"`
}

// Stats summarises every order that was not cancelled.
type Stats struct {
	TotalRevenue      money.Amount   `json:"totalRevenue"`
	TotalOrders       int64          `json:"totalOrders"`
	NewCustomers      int64          `json:"newCustomers"`
	AverageOrderValue money.Amount   `json:"averageOrderValue"`
	TopProducts       []ProductSales `json:"topProducts"`
}

// Service provides cached access to sales statistics.
type Service struct {
	Q      Querier
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

// Stats returns the cached statistics or recomputes them.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.Q == nil {
		return Stats{}, errors.New("analytics service not configured")
	}
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}
	totals, err := s.Q.SalesTotals(ctx, excludeStatus)
	if err != nil {
		return Stats{}, fmt.Errorf("analytics: totals: %w", err)
	}
	top, err := s.Q.TopProducts(ctx, excludeStatus, topLimit)
	if err != nil {
		return Stats{}, fmt.Errorf("analytics: top products: %w", err)
	}
	out := Stats{
		TotalRevenue: totals.Revenue,
		TotalOrders:  totals.Orders,
		NewCustomers: totals.Customers,
		TopProducts:  make([]ProductSales, 0, len(top)),
	}
	if totals.Orders > 0 {
		out.AverageOrderValue = totals.Revenue / money.Amount(totals.Orders)
	}
	for _, p := range top {
		out.TopProducts = append(out.TopProducts, ProductSales{Name: p.Name, Sales: p.Sales, Revenue: p.Revenue})
	}
	s.store(ctx, out)
	return out, nil
}

// Invalidate drops the cached statistics.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || s.R == nil {
		return nil
	}
	return s.R.Del(ctx, statsKey).Err()
}

func (s *Service) cached(ctx context.Context) (Stats, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Stats{}, false
	}
	data, err := s.R.Get(ctx, statsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.Logger.Warn().Err(err).Msg("read stats cache failed")
		}
		return Stats{}, false
	}
	var out Stats
	if err := json.Unmarshal(data, &out); err != nil {
		return Stats{}, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, value Stats) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, statsKey, data, s.TTL).Err()
}
