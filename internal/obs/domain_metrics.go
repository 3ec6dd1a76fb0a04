package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PromoValidationsTotal counts promo validation requests by outcome.
	PromoValidationsTotal *prometheus.CounterVec
	// PromoRedemptionsTotal counts promo consumption attempts during checkout.
	PromoRedemptionsTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts orders persisted, split by whether a promo applied.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderValue records order totals in minor currency units.
	OrderValue prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PromoValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_validations_total",
			Help:      "Count of promo validation outcomes.",
		}, []string{"outcome"})
		PromoRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_redemptions_total",
			Help:      "Count of promo redemption attempts by result.",
		}, []string{"result"})
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of created orders.",
		}, []string{"promo"})
		OrderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Distribution of order totals in minor units.",
			Buckets:   []float64{50_000, 100_000, 250_000, 500_000, 1_000_000, 2_500_000, 5_000_000},
		})

		mustRegisterCollector(reg, PromoValidationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoValidationsTotal = v
			}
		})
		mustRegisterCollector(reg, PromoRedemptionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoRedemptionsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderValue, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderValue = v
			}
		})
	})
}

// ObservePromoValidation is a no-op until domain metrics are registered.
func ObservePromoValidation(outcome string) {
	if PromoValidationsTotal != nil {
		PromoValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObservePromoRedemption records a redemption attempt result.
func ObservePromoRedemption(result string) {
	if PromoRedemptionsTotal != nil {
		PromoRedemptionsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveOrderCreated records a persisted order and its total.
func ObserveOrderCreated(withPromo bool, total int64) {
	if OrdersCreatedTotal != nil {
		label := "none"
		if withPromo {
			label = "applied"
		}
		OrdersCreatedTotal.WithLabelValues(label).Inc()
	}
	if OrderValue != nil {
		OrderValue.Observe(float64(total))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
