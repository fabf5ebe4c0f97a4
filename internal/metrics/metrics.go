// Package metrics exposes Prometheus metrics for tool calls and open
// databases.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Tool call results
const (
	ResultOK    = "ok"
	ResultError = "error"

	// UnknownTool labels calls naming a tool that is not registered
	UnknownTool = "unknown"
)

// Metrics tracks tool call and registry metrics.
//
// Methods handle a nil receiver, so a nil *Metrics is a no-op when metrics
// are disabled.
type Metrics struct {
	// ToolCalls counts tool invocations.
	// Labels: tool, result=[ok, error]
	ToolCalls *prometheus.CounterVec

	// ToolCallDuration tracks tool handler latency.
	// Labels: tool
	ToolCallDuration *prometheus.HistogramVec

	// OpenDatabases is the number of handles held by the registry.
	OpenDatabases prometheus.Gauge
}

// New creates the metrics and registers them with registerer. A nil
// registerer means prometheus.DefaultRegisterer. Call it once per registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsondb_tool_calls_total",
				Help: "Total tool calls by tool and result",
			},
			[]string{"tool", "result"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsondb_tool_call_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		OpenDatabases: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jsondb_open_databases",
				Help: "Current number of open database handles",
			},
		),
	}

	registerer.MustRegister(
		m.ToolCalls,
		m.ToolCallDuration,
		m.OpenDatabases,
	)
	return m
}

// ObserveToolCall records one finished tool call.
func (m *Metrics) ObserveToolCall(tool string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if failed {
		result = ResultError
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetOpenDatabases sets the open handle gauge.
func (m *Metrics) SetOpenDatabases(n int) {
	if m == nil {
		return
	}
	m.OpenDatabases.Set(float64(n))
}
