// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector gathers client-side counters for workflow orchestration.
// All methods are safe on a nil receiver, so call sites never need to
// branch on whether metrics are enabled.
type Collector struct {
	registrationsTotal *prometheus.CounterVec
	executionsTotal    *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	streamEventsTotal  *prometheus.CounterVec
	cacheRefreshes     *prometheus.CounterVec
	transportDegraded  prometheus.Counter
}

// NewCollector creates a collector registered on reg. A nil reg uses
// the default prometheus registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		registrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "registrations_total",
			Help:      "Workflow registrations by outcome.",
		}, []string{"outcome"}),
		executionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "executions_total",
			Help:      "Workflow executions by transport and outcome.",
		}, []string{"transport", "outcome"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seqflow",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of workflow executions.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"transport"}),
		fallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "fallbacks_total",
			Help:      "Fallback ladder stages reached after a failed stream.",
		}, []string{"stage"}),
		streamEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "stream_events_total",
			Help:      "Decoded streaming events by type.",
		}, []string{"type"}),
		cacheRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "agent_cache_refreshes_total",
			Help:      "Agent directory refreshes by outcome.",
		}, []string{"outcome"}),
		transportDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seqflow",
			Name:      "transport_degraded_total",
			Help:      "Streaming requests the server answered with a plain JSON body.",
		}),
	}
}

// Registration records one registration attempt outcome.
func (c *Collector) Registration(outcome string) {
	if c == nil {
		return
	}
	c.registrationsTotal.WithLabelValues(outcome).Inc()
}

// Execution records one execution attempt.
func (c *Collector) Execution(transport string, ok bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.executionsTotal.WithLabelValues(transport, outcome).Inc()
	c.executionDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
}

// Fallback records which fallback stage handled an execution.
func (c *Collector) Fallback(stage string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(stage).Inc()
}

// StreamEvent records one decoded stream event.
func (c *Collector) StreamEvent(eventType string) {
	if c == nil {
		return
	}
	c.streamEventsTotal.WithLabelValues(eventType).Inc()
}

// CacheRefresh records one agent directory refresh.
func (c *Collector) CacheRefresh(ok bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.cacheRefreshes.WithLabelValues(outcome).Inc()
}

// TransportDegraded records a silent stream-to-JSON downgrade.
func (c *Collector) TransportDegraded() {
	if c == nil {
		return
	}
	c.transportDegraded.Inc()
}
