// Package metrics exposes Prometheus instrumentation for the geolocation
// pipeline: engine construction, azimuth estimation fallbacks, inverse
// queries and reprojection throughput.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leoproj_engine_build_seconds",
			Help:    "Wall time to construct a scan-line geolocation engine.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	scanLinesBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leoproj_scan_lines_built_total",
			Help: "Total number of per-line projections constructed.",
		},
	)

	azimuthFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leoproj_azimuth_fallbacks_total",
			Help: "Scan lines whose azimuth came from a fallback instead of the finite-difference estimate.",
		},
	)

	inverseQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leoproj_inverse_queries_total",
			Help: "Total inverse geolocation queries answered.",
		},
	)

	inverseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leoproj_inverse_errors_total",
			Help: "Inverse geolocation queries that failed (out of range or unprojectable).",
		},
	)

	reprojectedSamples = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leoproj_reprojected_samples_total",
			Help: "Samples painted into the output raster.",
		},
	)
)

func init() {
	prometheus.MustRegister(engineBuildSeconds)
	prometheus.MustRegister(scanLinesBuilt)
	prometheus.MustRegister(azimuthFallbacks)
	prometheus.MustRegister(inverseQueries)
	prometheus.MustRegister(inverseErrors)
	prometheus.MustRegister(reprojectedSamples)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEngineBuild records one engine construction.
func ObserveEngineBuild(d time.Duration, lines, fallbacks int) {
	engineBuildSeconds.Observe(d.Seconds())
	scanLinesBuilt.Add(float64(lines))
	azimuthFallbacks.Add(float64(fallbacks))
}

// AddInverseQueries records a batch of inverse query outcomes.
func AddInverseQueries(answered, failed int) {
	inverseQueries.Add(float64(answered))
	inverseErrors.Add(float64(failed))
}

// AddReprojectedSamples records samples painted into an output raster.
func AddReprojectedSamples(n int) {
	reprojectedSamples.Add(float64(n))
}
