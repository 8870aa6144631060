package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every nx collector. It is separate from the default
// registry so textfile output carries no Go runtime series.
var Registry = prometheus.NewRegistry()

var (
	// Remote request metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nx_remote_requests_total",
			Help: "Total requests sent to the document repository",
		},
		[]string{"op", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nx_remote_request_duration_seconds",
			Help:    "Remote request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	// Ensure metrics
	EnsureOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nx_ensure_outcomes_total",
			Help: "Documents processed while ensuring paths, by result",
		},
		[]string{"result"},
	)

	// Upload metrics
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nx_uploads_total",
			Help: "Local files processed by upload commands, by status",
		},
		[]string{"status"},
	)

	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nx_upload_bytes_total",
			Help: "Bytes sent to the batch upload endpoint",
		},
	)

	// Cache metrics
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nx_document_cache_hits_total",
			Help: "Document lookups answered from the cache",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nx_document_cache_misses_total",
			Help: "Document lookups sent to the repository",
		},
	)
)

func init() {
	// Register all metrics
	Registry.MustRegister(
		RemoteRequestsTotal,
		RemoteRequestDuration,
		EnsureOutcomesTotal,
		UploadsTotal,
		UploadBytesTotal,
		CacheHits,
		CacheMisses,
	)
}

// WriteTextfile writes the current metric values in the text exposition
// format, for the node exporter textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
