// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	InferenceDuration prometheus.Histogram
	Predictions       *prometheus.CounterVec
	DownloadedBytes   prometheus.Counter
	ModelReady        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		InferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inference_duration_seconds",
				Help:    "Duration of a single forward pass including preprocessing",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Predictions served, by predicted class",
			}, []string{"class"},
		),
		DownloadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "checkpoint_download_bytes_total",
				Help: "Bytes written while downloading the model checkpoint",
			},
		),
		ModelReady: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_ready",
				Help: "1 once the model is loaded and /analyze accepts requests",
			},
		),
	}

	reg.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.InferenceDuration,
		m.Predictions,
		m.DownloadedBytes,
		m.ModelReady,
	)
	return m
}
