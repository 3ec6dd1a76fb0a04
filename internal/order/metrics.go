package order

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Instruments are the OpenTelemetry counters updated on checkout.
type Instruments struct {
	placed  metric.Int64Counter
	revenue metric.Int64Counter
}

// NewInstruments registers the order counters on m.
func NewInstruments(m metric.Meter) (*Instruments, error) {
	placed, err := m.Int64Counter("orders.placed", metric.WithDescription("Orders persisted by checkout."))
	if err != nil {
		return nil, err
	}
	revenue, err := m.Int64Counter("orders.revenue", metric.WithDescription("Order totals in minor units."), metric.WithUnit("{minor_unit}"))
	if err != nil {
		return nil, err
	}
	return &Instruments{placed: placed, revenue: revenue}, nil
}

func (i *Instruments) record(ctx context.Context, total money.Amount) {
	if i == nil {
		return
	}
	i.placed.Add(ctx, 1)
	i.revenue.Add(ctx, total.Int64())
}
