// Package metrics holds the Prometheus collectors exported by blogd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogd_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogd_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	PostOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogd_post_operations_total",
			Help: "Total number of post operations by kind and result",
		},
		[]string{"operation", "result"},
	)

	UserOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogd_user_operations_total",
			Help: "Total number of register and login attempts by result",
		},
		[]string{"operation", "result"},
	)

	ImageBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blogd_image_bytes_uploaded_total",
			Help: "Total number of image bytes accepted",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogd_events_published_total",
			Help: "Total number of post events handed to the broker by result",
		},
		[]string{"type", "result"},
	)

	ImagesCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blogd_images_collected_total",
			Help: "Total number of unreferenced image blobs deleted by sweeps",
		},
	)

	EventDeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogd_event_delivery_failures_total",
			Help: "Total number of post events the broker did not accept",
		},
		[]string{"type"},
	)

	PreviewsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blogd_web_previews_active",
			Help: "Number of image previews held by the web client",
		},
	)
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)
