package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceQuote  = "quote"
	SourceForm   = "form"
	SourceSubmit = "submit"

	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeFailure    = "failure"
)

// OrderMetrics tracks totals recomputation and order submission.
type OrderMetrics struct {
	recomputes      *prometheus.CounterVec
	recomputeTime   *prometheus.HistogramVec
	clamps          *prometheus.CounterVec
	submits         *prometheus.CounterVec
	droppedStreamed *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	recomputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_totals_recomputes_total",
		Help: "Full order totals recomputations.",
	}, []string{"screen", "source"})
	recomputeTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_totals_recompute_seconds",
		Help:    "Time spent recomputing order totals.",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	}, []string{"screen"})
	clamps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_stock_clamps_total",
		Help: "Line quantities clamped to available stock.",
	}, []string{"screen"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submits_total",
		Help: "Order submissions by outcome.",
	}, []string{"screen", "outcome"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livesync_dropped_events_total",
		Help: "Events dropped because a subscriber was not keeping up.",
	}, []string{"collection"})
	reg.MustRegister(recomputes, recomputeTime, clamps, submits, dropped)
	return &OrderMetrics{
		recomputes:      recomputes,
		recomputeTime:   recomputeTime,
		clamps:          clamps,
		submits:         submits,
		droppedStreamed: dropped,
	}
}

// ObserveRecompute records one recompute along with the clamps it produced.
func (m *OrderMetrics) ObserveRecompute(screen, source string, took time.Duration, clamps int) {
	if m == nil || m.recomputes == nil {
		return
	}
	screen = normalizeLabel(screen)
	m.recomputes.WithLabelValues(screen, normalizeLabel(source)).Inc()
	m.recomputeTime.WithLabelValues(screen).Observe(took.Seconds())
	if clamps > 0 {
		m.clamps.WithLabelValues(screen).Add(float64(clamps))
	}
}

// IncSubmit counts a submission outcome.
func (m *OrderMetrics) IncSubmit(screen, outcome string) {
	if m == nil || m.submits == nil {
		return
	}
	m.submits.WithLabelValues(normalizeLabel(screen), normalizeLabel(outcome)).Inc()
}

// IncDropped counts an event a live-sync subscriber missed.
func (m *OrderMetrics) IncDropped(collection string) {
	if m == nil || m.droppedStreamed == nil {
		return
	}
	m.droppedStreamed.WithLabelValues(normalizeLabel(collection)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
