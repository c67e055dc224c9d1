package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartItemsAdded counts cart insertions by category and outcome.
	CartItemsAdded *prometheus.CounterVec
	// CartDuplicatesFlagged counts insertions rejected by the duplicate check.
	CartDuplicatesFlagged prometheus.Counter
	// QuotationsSent counts quotation send attempts by result.
	QuotationsSent *prometheus.CounterVec
	// QuotationEmailLatency records email delivery attempt latency in milliseconds.
	QuotationEmailLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartItemsAdded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_added_total",
			Help:      "Count of cart insertions by product category and outcome.",
		}, []string{"category", "result"})
		CartDuplicatesFlagged = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_duplicates_flagged_total",
			Help:      "Count of insertions rejected by the duplicate check.",
		})
		QuotationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotations_sent_total",
			Help:      "Count of quotation send attempts by result.",
		}, []string{"result"})
		QuotationEmailLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quotation_email_latency_ms",
			Help:      "Quotation email delivery latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		})
		reg.MustRegister(CartItemsAdded, CartDuplicatesFlagged, QuotationsSent, QuotationEmailLatency)
	})
}
