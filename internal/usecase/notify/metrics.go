package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Prometheus metrics for webhook delivery monitoring
var (
	// webhookDeliveriesTotal tracks webhook delivery results
	webhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_webhook_deliveries_total",
			Help: "Total number of webhook deliveries",
		},
		[]string{"result"}, // result: success|failure
	)

	// webhookDeliveryDuration tracks webhook delivery duration
	webhookDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comic_webhook_delivery_duration_seconds",
			Help:    "Webhook delivery duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"result"},
	)

	// cacheWritesTotal tracks delivery-time cache writes
	cacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_cache_writes_total",
			Help: "Total number of delivery-time cache writes",
		},
		[]string{"result"},
	)

	// webhooksSkippedTotal tracks webhooks that were already up to date
	webhooksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comic_webhooks_skipped_total",
			Help: "Total number of webhooks skipped because they were already notified",
		},
	)
)

// recordDelivery records one webhook delivery and its duration.
func recordDelivery(result string, duration time.Duration) {
	webhookDeliveriesTotal.WithLabelValues(result).Inc()
	webhookDeliveryDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// recordCacheWrite records one cache write after a successful delivery.
func recordCacheWrite(result string) {
	cacheWritesTotal.WithLabelValues(result).Inc()
}

func recordSkipped(n int) {
	if n > 0 {
		webhooksSkippedTotal.Add(float64(n))
	}
}
