package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the packet pipeline.
type Metrics struct {
	PacketsProcessed *prometheus.CounterVec // labels: type={pull,edit,delete}
	PacketsRejected  prometheus.Counter
	PacketsSkipped   prometheus.Counter
	RatesClassified  *prometheus.CounterVec // labels: level={normal,flagged,anomaly}

	WatchdogRetriggered prometheus.Counter
	WatchdogDuplicates  prometheus.Counter
	InboxDepth          prometheus.Gauge

	ProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PacketsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "packets_processed_total",
			Help:      "Packets fully processed by handler type.",
		}, []string{"type"}),
		PacketsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "packets_rejected_total",
			Help:      "Packets discarded as malformed or referencing missing history.",
		}),
		PacketsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "packets_skipped_total",
			Help:      "Notifications whose inbox row was already consumed.",
		}),
		RatesClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "rates_classified_total",
			Help:      "New flow rates by anomaly classification level.",
		}, []string{"level"}),
		WatchdogRetriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "watchdog_retriggered_total",
			Help:      "Stranded packets rewritten and retriggered.",
		}),
		WatchdogDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tank_pull",
			Name:      "watchdog_duplicates_total",
			Help:      "Duplicate inbox packets deleted.",
		}),
		InboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tank_pull",
			Name:      "inbox_depth",
			Help:      "Packets currently waiting in the inbox.",
		}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tank_pull",
			Name:      "processing_duration_seconds",
			Help:      "End-to-end duration of one packet handler run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.PacketsProcessed,
		m.PacketsRejected,
		m.PacketsSkipped,
		m.RatesClassified,
		m.WatchdogRetriggered,
		m.WatchdogDuplicates,
		m.InboxDepth,
		m.ProcessingDuration,
	)

	return m
}
