// Package monitoring exposes Prometheus instrumentation for the plan
// pipeline: synthesis fallback stages, validation outcomes and
// normalization error rates, plus the usual HTTP request metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	PlansGenerated   *prometheus.CounterVec
	PlanConfidence   prometheus.Histogram
	SynthesisStage   *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec

	// LLM metrics
	LLMCalls  *prometheus.CounterVec
	LLMTokens *prometheus.CounterVec

	// Validation metrics
	ValidationRuns     *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	ValidationsActive  prometheus.Gauge

	// Normalization metrics
	ItemsNormalized *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// New creates the metrics collector and registers every metric with
// the default registry.
func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planwright_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),

		PlansGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_plans_generated_total",
				Help: "Total number of plans generated, by synthesis stage",
			},
			[]string{"stage"},
		),
		PlanConfidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planwright_plan_confidence",
				Help:    "Confidence score distribution of generated plans",
				Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
			},
		),
		SynthesisStage: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_synthesis_stage_total",
				Help: "Which fallback stage satisfied a synthesis request",
			},
			[]string{"phase", "stage"},
		),
		PipelineDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planwright_pipeline_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		LLMCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_llm_calls_total",
				Help: "Total number of LLM provider calls",
			},
			[]string{"provider", "status"},
		),
		LLMTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_llm_tokens_total",
				Help: "Total tokens consumed per LLM provider",
			},
			[]string{"provider"},
		),

		ValidationRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_validation_runs_total",
				Help: "Total number of validation runs, by outcome",
			},
			[]string{"outcome"},
		),
		ValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planwright_validation_duration_seconds",
				Help:    "Validation run duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		ValidationsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "planwright_validations_active",
				Help: "Number of validation runs currently executing",
			},
		),

		ItemsNormalized: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planwright_items_normalized_total",
				Help: "Total number of normalized items, by validity",
			},
			[]string{"valid"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "planwright_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPlan records a generated plan and its confidence.
func (m *Metrics) RecordPlan(stage string, confidence float64) {
	m.PlansGenerated.WithLabelValues(stage).Inc()
	m.PlanConfidence.Observe(confidence)
}

// RecordSynthesisStage records which fallback stage produced a phase.
func (m *Metrics) RecordSynthesisStage(phase, stage string) {
	m.SynthesisStage.WithLabelValues(phase, stage).Inc()
}

// RecordPipelineStage records a pipeline stage duration.
func (m *Metrics) RecordPipelineStage(stage string, duration time.Duration) {
	m.PipelineDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLLMCall records an LLM provider call.
func (m *Metrics) RecordLLMCall(provider, status string, tokens int) {
	m.LLMCalls.WithLabelValues(provider, status).Inc()
	if tokens > 0 {
		m.LLMTokens.WithLabelValues(provider).Add(float64(tokens))
	}
}

// RecordValidation records a finished validation run.
func (m *Metrics) RecordValidation(outcome string, duration time.Duration) {
	m.ValidationRuns.WithLabelValues(outcome).Inc()
	m.ValidationDuration.Observe(duration.Seconds())
}

// RecordNormalizedItem records one normalized item.
func (m *Metrics) RecordNormalizedItem(valid bool) {
	if valid {
		m.ItemsNormalized.WithLabelValues("true").Inc()
	} else {
		m.ItemsNormalized.WithLabelValues("false").Inc()
	}
}
