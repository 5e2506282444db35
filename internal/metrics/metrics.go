package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesSent      *prometheus.CounterVec
	SafetyViolations  *prometheus.CounterVec
	RateLimitDenials  *prometheus.CounterVec
	HandoffsCreated   *prometheus.CounterVec
	OptOuts           prometheus.Counter
	BatchRunDuration  *prometheus.HistogramVec
	InboundClassified *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_messages_sent_total",
			Help: "Total outbound messages accepted for delivery",
		}, []string{"agent", "method"}),
		SafetyViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_safety_violations_total",
			Help: "Total safety rule violations by resulting action",
		}, []string{"action"}),
		RateLimitDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_rate_limit_denials_total",
			Help: "Total contact attempts denied by the rate limiter",
		}, []string{"window"}),
		HandoffsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_handoffs_created_total",
			Help: "Total human handoffs opened",
		}, []string{"agent", "urgency"}),
		OptOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_opt_outs_total",
			Help: "Total customer opt-outs recorded",
		}),
		BatchRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outreach_batch_run_duration_seconds",
			Help:    "Time taken by a scheduled batch run",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		InboundClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_inbound_classified_total",
			Help: "Total inbound messages classified, by detected intent",
		}, []string{"intent"}),
	}
}
