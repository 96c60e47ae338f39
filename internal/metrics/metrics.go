// Package metrics exposes the Prometheus instrumentation for the request
// pipeline, grounded on xg2g/internal/ratelimit's promauto idiom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audiogated"

var (
	// CacheResults counts Get outcomes by backend and result
	// ("hit"|"miss") (spec §4.6).
	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_results_total",
			Help:      "Cache lookups by backend and outcome",
		},
		[]string{"backend", "result"},
	)

	// Coalesced counts requests that joined an already-running
	// single-flight computation instead of starting their own (spec §4.7).
	Coalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_coalesced_total",
			Help:      "Requests that joined an in-flight computation",
		},
	)

	// ProcessorInvocations counts Processor.Process calls by outcome.
	ProcessorInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_invocations_total",
			Help:      "Processor invocations by outcome",
		},
		[]string{"outcome"},
	)

	// ToolDuration observes external-tool wall-clock run time in seconds.
	ToolDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_run_duration_seconds",
			Help:      "External audio tool invocation duration",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ToolExitCodes counts external tool terminations by classification
	// ("success"|"failed"|"timeout").
	ToolExitCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_exits_total",
			Help:      "External tool exit classification",
		},
		[]string{"result"},
	)

	// LoaderErrors counts SourceLoader.Load failures. The processor
	// records every failure under the single backend label "load".
	LoaderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_errors_total",
			Help:      "Source load failures by backend",
		},
		[]string{"backend"},
	)

	// HTTPRequests counts error responses by route and HTTP status text;
	// successful responses are not counted.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)
