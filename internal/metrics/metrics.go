package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Catalog refresh runs by semester and result",
		},
		[]string{"semester", "result"},
	)

	CatalogRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_refresh_duration_seconds",
			Help:    "Catalog refresh duration in seconds (fetch, parse and reconcile)",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"semester"},
	)

	CatalogLectures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_lectures",
			Help: "Lectures seen in the latest catalog refresh",
		},
		[]string{"year", "semester"},
	)

	EnrollmentRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_enrollment_rejections_total",
			Help: "Rejected add-lecture requests by error kind",
		},
		[]string{"kind"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
