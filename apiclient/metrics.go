package apiclient

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "invadmin_client"

// Refresh outcomes recorded per retried request
const (
	outcomeRefreshed = "refreshed"
	outcomeReused    = "reused"
	outcomeFailed    = "failed"
)

type metrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	retries   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests made to the backend by method and final status code.",
		}, []string{"method", "code"})),
		refreshes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_refresh_total",
			Help:      "Unauthorized responses handled by the refresh stage, by outcome.",
		}, []string{"outcome"})),
		retries: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_retries_total",
			Help:      "Requests re-sent after a token refresh.",
		})),
	}
}

// register returns the collector already registered under the same
// descriptor when there is one, so several clients can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
