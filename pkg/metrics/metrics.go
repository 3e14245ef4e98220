package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	prismy = "prismy"

	// Stage metrics
	stageCompletedTotal = "stage_completed_total"
	stageDuration       = "stage_duration_seconds"

	// Translation metrics
	providerRequestsTotal = "provider_requests_total"
	chunkSoftFailures     = "chunk_soft_failures_total"

	// Labels
	stageLabel    = "stage"
	outcomeLabel  = "outcome"
	providerLabel = "provider"
	tierLabel     = "tier"
)

var stageLabels = []string{
	stageLabel,
	outcomeLabel,
}

var providerLabels = []string{
	providerLabel,
	outcomeLabel,
}

/**
* Metrics definition
**/
var stageCompletedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prismy,
		Name:      stageCompletedTotal,
		Help:      "number of pipeline stage executions by outcome",
	},
	stageLabels,
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: prismy,
		Name:      stageDuration,
		Help:      "pipeline stage duration in seconds",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	},
	[]string{stageLabel},
)

var providerRequestsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prismy,
		Name:      providerRequestsTotal,
		Help:      "number of translation provider requests by outcome",
	},
	providerLabels,
)

var chunkSoftFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prismy,
		Name:      chunkSoftFailures,
		Help:      "number of chunks that kept their original text after provider fallback was exhausted",
	},
	[]string{tierLabel},
)

func IncreaseStageCompletedMetric(stage, outcome string) {
	labels := prometheus.Labels{
		stageLabel:   stage,
		outcomeLabel: outcome,
	}
	stageCompletedTotalMetric.With(labels).Inc()
}

func ObserveStageDurationMetric(stage string, duration time.Duration) {
	labels := prometheus.Labels{
		stageLabel: stage,
	}
	stageDurationMetric.With(labels).Observe(duration.Seconds())
}

func IncreaseProviderRequestsMetric(provider, outcome string) {
	labels := prometheus.Labels{
		providerLabel: provider,
		outcomeLabel:  outcome,
	}
	providerRequestsTotalMetric.With(labels).Inc()
}

func IncreaseChunkSoftFailuresMetric(tier string) {
	labels := prometheus.Labels{
		tierLabel: tier,
	}
	chunkSoftFailuresMetric.With(labels).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(stageCompletedTotalMetric)
	prometheus.MustRegister(stageDurationMetric)
	prometheus.MustRegister(providerRequestsTotalMetric)
	prometheus.MustRegister(chunkSoftFailuresMetric)
}
