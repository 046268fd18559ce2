package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection metrics
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_detections_total",
		Help: "Total detections by verdict",
	}, []string{"is_vr", "fov", "format"})

	detectionMethodsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_detection_methods_total",
		Help: "Total detections each method contributed to",
	}, []string{"method"})

	detectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vrprobe_detection_duration_seconds",
		Help:    "Time spent running all detection methods for one file",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
	})

	frameAnalysisFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_frame_analysis_failures_total",
		Help: "Frame analyses that produced no signal, by reason",
	}, []string{"reason"})

	// Library metrics
	libraryFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_library_files_total",
		Help: "Library files processed by outcome",
	}, []string{"result"})

	catalogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vrprobe_catalog_entries",
		Help: "Number of entries in the detection catalog",
	})

	scansActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vrprobe_library_scans_active",
		Help: "Number of library scans in progress",
	})

	watcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_watcher_events_total",
		Help: "Filesystem events handled by the library watcher",
	}, []string{"op"})

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrprobe_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vrprobe_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordDetection records one completed detection.
func RecordDetection(isVR bool, fov, format string, methods []string, took time.Duration) {
	if !isVR {
		fov, format = "none", "none"
	}
	detectionsTotal.WithLabelValues(strconv.FormatBool(isVR), fov, format).Inc()
	for _, m := range methods {
		detectionMethodsTotal.WithLabelValues(m).Inc()
	}
	detectionDuration.Observe(took.Seconds())
}

// IncrementFrameFailure counts a frame analysis that yielded nothing.
func IncrementFrameFailure(reason string) {
	frameAnalysisFailuresTotal.WithLabelValues(reason).Inc()
}

// IncrementLibraryFile counts a processed library file. Result is one of
// "vr", "flat", "invalid" or "error".
func IncrementLibraryFile(result string) {
	libraryFilesTotal.WithLabelValues(result).Inc()
}

// SetCatalogEntries sets the catalog size gauge.
func SetCatalogEntries(n int) {
	catalogEntries.Set(float64(n))
}

// ScanStarted and ScanFinished bracket a library scan.
func ScanStarted()  { scansActive.Inc() }
func ScanFinished() { scansActive.Dec() }

// IncrementWatcherEvent counts a handled filesystem event.
func IncrementWatcherEvent(op string) {
	watcherEventsTotal.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, took time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
