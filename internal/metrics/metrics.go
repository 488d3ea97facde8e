// Package metrics exposes Prometheus instrumentation for the decision
// pipeline. Collectors are registered on the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PipelineRuns counts pipeline executions by outcome.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_pipeline_runs_total",
		Help: "Pipeline executions by outcome.",
	}, []string{"outcome"})

	// GenerationDuration observes end-to-end generation time per user.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spendsense_generation_duration_seconds",
		Help:    "End-to-end recommendation generation time per user.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// GuardrailFailures counts failed guardrail checks by check name.
	GuardrailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_guardrail_failures_total",
		Help: "Failed guardrail checks by check name.",
	}, []string{"check"})

	// RecommendationsPersisted counts stored recommendations by status.
	RecommendationsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_recommendations_persisted_total",
		Help: "Stored recommendations by initial status.",
	}, []string{"status"})

	// CacheOps counts signal cache lookups by result.
	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_signal_cache_ops_total",
		Help: "Signal report cache lookups by result.",
	}, []string{"result"})

	// EnrichmentFallbacks counts provider calls that fell back to the
	// deterministic template.
	EnrichmentFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spendsense_enrichment_fallbacks_total",
		Help: "Provider enrichment calls that fell back to template output.",
	})
)

// Pipeline run outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeConsentDenied = "consent_denied"
	OutcomeError         = "error"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
