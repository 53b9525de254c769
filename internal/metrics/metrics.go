package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeDrift labels drift checks that found significant drift.
	OutcomeDrift = "drift"
	// OutcomeStable labels drift checks within thresholds.
	OutcomeStable = "stable"
	// OutcomeNoBaseline labels drift checks without a previous run.
	OutcomeNoBaseline = "no_baseline"
	// OutcomeError labels drift checks that failed.
	OutcomeError = "error"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardrail",
			Name:      "evaluations_total",
			Help:      "Total number of artifact evaluations, partitioned by confidence band.",
		},
		[]string{"band"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "guardrail",
			Name:      "evaluation_seconds",
			Help:      "Artifact evaluation latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	evidenceFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardrail",
			Name:      "evidence_lookup_fallbacks_total",
			Help:      "Evidence lookups that failed and fell through to the next tier, by failed tier.",
		},
		[]string{"tier"},
	)

	driftDetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardrail",
			Name:      "drift_detections_total",
			Help:      "Run drift checks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	invariantViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardrail",
			Name:      "invariant_violations_total",
			Help:      "Invariant violations observed, by invariant id.",
		},
		[]string{"id"},
	)

	ceilingClampsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "guardrail",
			Name:      "score_ceiling_clamps_total",
			Help:      "Evaluations whose score was lowered by the confidence ceiling.",
		},
	)
)

// Register attaches guardrail collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		evidenceFallbacksTotal,
		driftDetectionsTotal,
		invariantViolationsTotal,
		ceilingClampsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records an evaluation's band, latency and whether the ceiling clamped it.
func ObserveEvaluation(band string, duration time.Duration, clamped bool) {
	if band == "" {
		band = "unknown"
	}
	evaluationsTotal.WithLabelValues(band).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
	if clamped {
		ceilingClampsTotal.Inc()
	}
}

// EvidenceFallback counts a failed lookup tier.
func EvidenceFallback(tier string) {
	evidenceFallbacksTotal.WithLabelValues(tier).Inc()
}

// ObserveDrift counts a drift check outcome.
func ObserveDrift(outcome string) {
	switch outcome {
	case OutcomeDrift, OutcomeStable, OutcomeNoBaseline:
	default:
		outcome = OutcomeError
	}
	driftDetectionsTotal.WithLabelValues(outcome).Inc()
}

// InvariantViolation counts a failed invariant.
func InvariantViolation(id string) {
	invariantViolationsTotal.WithLabelValues(id).Inc()
}
