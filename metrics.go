// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "rpcproxy_client"

// Call outcomes reported by Metrics.
const (
	OutcomeOK             = "ok"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeTimeout        = "timeout"
)

// Metrics is a prometheus.Collector counting remote calls.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics returns a new, unregistered collector.
func NewMetrics() *Metrics {
	return &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "calls_total",
				Help:      "The number of remote calls by method and outcome.",
			}, []string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "call_duration_seconds",
				Help:      "The time taken by one remote call exchange.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.calls.Describe(ch)
	m.duration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.calls.Collect(ch)
	m.duration.Collect(ch)
}

// Middleware records every call passing through it.
func (m *Metrics) Middleware() Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			start := time.Now()
			body, err := next(ctx, call)
			m.duration.WithLabelValues(call.Method.Name).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(call.Method.Name, outcome(err)).Inc()
			return body, err
		}
	}
}

func outcome(err error) string {
	var remote *RemoteCallError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &remote):
		return OutcomeRemoteError
	case IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeTransportError
	}
}
