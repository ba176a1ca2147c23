// Copyright (C) 2023, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/wager/crypto/fhe"
)

type WagerMetrics struct {
	submissionCount           *prometheus.CounterVec
	submissionLatencySeconds  *prometheus.HistogramVec
	claimCount                *prometheus.CounterVec
	encryptionProviderStatus  prometheus.Gauge
	encryptionInitStartsCount prometheus.Counter
	apiRequestCount           *prometheus.CounterVec
}

func NewWagerMetrics(registerer prometheus.Registerer) *WagerMetrics {
	m := WagerMetrics{
		submissionCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_submission_count",
				Help: "Number of forecast submissions by terminal status and reason",
			},
			[]string{"status", "kind", "reason"},
		),
		submissionLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_submission_latency_seconds",
				Help:    "Time from validation to a terminal status",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		claimCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_claim_count",
				Help: "Number of claim transactions by result",
			},
			[]string{"result"},
		),
		encryptionProviderStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "encryption_provider_status",
				Help: "Encryption provider state: 0 idle, 1 initializing, 2 ready, 3 error",
			},
		),
		encryptionInitStartsCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "encryption_provider_init_count",
				Help: "Number of encryption backend initializations started",
			},
		),
		apiRequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_request_count",
				Help: "Number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}

	registerer.MustRegister(m.submissionCount)
	registerer.MustRegister(m.submissionLatencySeconds)
	registerer.MustRegister(m.claimCount)
	registerer.MustRegister(m.encryptionProviderStatus)
	registerer.MustRegister(m.encryptionInitStartsCount)
	registerer.MustRegister(m.apiRequestCount)

	return &m
}

// ObserveSubmission records one finished submission.
func (m *WagerMetrics) ObserveSubmission(status, kind, reason string, elapsed time.Duration) {
	m.submissionCount.WithLabelValues(status, kind, reason).Inc()
	m.submissionLatencySeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *WagerMetrics) ObserveClaim(result string) {
	m.claimCount.WithLabelValues(result).Inc()
}

func (m *WagerMetrics) ObserveAPIRequest(route string, code int) {
	m.apiRequestCount.WithLabelValues(route, statusLabel(code)).Inc()
}

// ProviderListener returns an fhe.Listener that mirrors provider transitions
// into the status gauge.
func (m *WagerMetrics) ProviderListener() fhe.Listener {
	return func(s fhe.State) {
		m.encryptionProviderStatus.Set(float64(s.Status))
		if s.Status == fhe.StatusInitializing {
			m.encryptionInitStartsCount.Inc()
		}
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
