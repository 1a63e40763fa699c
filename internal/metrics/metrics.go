// Package metrics exposes ingestion and tagging counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

const namespace = "ast"

// Recorder implements ports.IngestObserver on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	attempts       *prometheus.CounterVec
	fetched        *prometheus.CounterVec
	inserted       *prometheus.CounterVec
	tagFailures    *prometheus.CounterVec
	sideEffectErrs *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	aiTagging      *prometheus.CounterVec
}

var _ ports.IngestObserver = (*Recorder)(nil)

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_attempts_total",
			Help:      "Ingestion attempts per source by outcome",
		}, []string{"source", "outcome"}),
		fetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_fetched_items_total",
			Help:      "Feed entries fetched per source",
		}, []string{"source"}),
		inserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_inserted_items_total",
			Help:      "New items persisted per source",
		}, []string{"source"}),
		tagFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_tag_failures_total",
			Help:      "Items whose tags could not be persisted",
		}, []string{"source"}),
		sideEffectErrs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_side_effect_errors_total",
			Help:      "Failed best-effort writes by name",
		}, []string{"name"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of one source ingestion",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		aiTagging: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_tagging_total",
			Help:      "AI tagging calls by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveIngest records one per-source result.
func (r *Recorder) ObserveIngest(result domain.IngestResult) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	r.attempts.WithLabelValues(result.SourceID, outcome).Inc()
	r.fetched.WithLabelValues(result.SourceID).Add(float64(result.Fetched))
	r.inserted.WithLabelValues(result.SourceID).Add(float64(result.Inserted))
	if result.TagFailures > 0 {
		r.tagFailures.WithLabelValues(result.SourceID).Add(float64(result.TagFailures))
	}
	for _, effect := range result.SideEffects {
		if !effect.OK() {
			r.sideEffectErrs.WithLabelValues(effect.Name).Inc()
		}
	}
	r.duration.WithLabelValues(result.SourceID).Observe(result.Duration.Seconds())
}

// ObserveAITagging counts one AI tagging outcome.
func (r *Recorder) ObserveAITagging(outcome string) {
	r.aiTagging.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
