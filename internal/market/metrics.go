package market

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	wavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandwave_waves_total",
			Help: "Count of completed demand waves.",
		},
	)
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandwave_purchases_total",
			Help: "Count of executed purchases by outcome.",
		},
		[]string{"status"},
	)
	spendMicrosTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandwave_spend_micros_total",
			Help: "Total micros spent by the simulated market across waves.",
		},
	)
	candidatesEvaluatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "demandwave_candidates_evaluated_total",
			Help: "Count of catalog candidates evaluated across waves.",
		},
	)
	waveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "demandwave_wave_duration_seconds",
			Help:    "Wall-clock duration of one wave.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		wavesTotal,
		purchasesTotal,
		spendMicrosTotal,
		candidatesEvaluatedTotal,
		waveDurationSeconds,
	)
}

func observeWave(m WaveMetrics) {
	wavesTotal.Inc()
	purchasesTotal.WithLabelValues("succeeded").Add(float64(m.SuccessfulPurchases))
	purchasesTotal.WithLabelValues("failed").Add(float64(m.FailedPurchases))
	spendMicrosTotal.Add(float64(m.TotalSpentMicros))
	candidatesEvaluatedTotal.Add(float64(m.CandidatesEvaluated))
	waveDurationSeconds.Observe(m.CompletedAt.Sub(m.StartedAt).Seconds())
}
