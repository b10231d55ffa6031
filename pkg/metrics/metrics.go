package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	MemoriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engram_memories_total",
			Help: "Total number of memories currently stored",
		},
	)

	SecretsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engram_secrets_total",
			Help: "Total number of secrets currently stored",
		},
	)

	DevicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engram_devices_total",
			Help: "Total number of authorized devices",
		},
	)

	// Memory operation metrics
	MemoryCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engram_memory_create_duration_seconds",
			Help:    "Time taken to sanitize, embed, and store a memory",
			Buckets: prometheus.DefBuckets,
		},
	)

	MemorySearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engram_memory_search_duration_seconds",
			Help:    "Time taken to run a vector or hybrid search",
			Buckets: prometheus.DefBuckets,
		},
	)

	DLPRedactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_dlp_redactions_total",
			Help: "Total number of DLP pattern substitutions by label",
		},
		[]string{"label"},
	)

	// Indexing metrics
	IndexedFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_indexed_files_total",
			Help: "Total number of files processed by the indexing service, by terminal state",
		},
		[]string{"state"}, // stored, skipped, error
	)

	IndexingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engram_indexing_duration_seconds",
			Help:    "Time taken to ingest a single file end to end",
			Buckets: prometheus.DefBuckets,
		},
	)

	WatcherEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_watcher_events_total",
			Help: "Total filesystem events observed by the session watcher",
		},
		[]string{"type"}, // add, change
	)

	// Sync metrics
	SyncPushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_sync_push_total",
			Help: "Total number of sync push calls by stream and outcome",
		},
		[]string{"stream", "outcome"}, // memory|secrets, ok|error
	)

	SyncPullTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_sync_pull_total",
			Help: "Total number of sync pull calls by stream and outcome",
		},
		[]string{"stream", "outcome"},
	)

	SyncCursor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engram_sync_cursor",
			Help: "Current sync cursor position by stream",
		},
		[]string{"stream"},
	)

	// MCP facade metrics
	MCPToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engram_mcp_tool_calls_total",
			Help: "Total number of MCP tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	MCPToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engram_mcp_tool_duration_seconds",
			Help:    "MCP tool call duration in seconds by tool",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

func init() {
	prometheus.MustRegister(MemoriesTotal)
	prometheus.MustRegister(SecretsTotal)
	prometheus.MustRegister(DevicesTotal)

	prometheus.MustRegister(MemoryCreateDuration)
	prometheus.MustRegister(MemorySearchDuration)
	prometheus.MustRegister(DLPRedactionsTotal)

	prometheus.MustRegister(IndexedFilesTotal)
	prometheus.MustRegister(IndexingDuration)
	prometheus.MustRegister(WatcherEventsTotal)

	prometheus.MustRegister(SyncPushTotal)
	prometheus.MustRegister(SyncPullTotal)
	prometheus.MustRegister(SyncCursor)

	prometheus.MustRegister(MCPToolCallsTotal)
	prometheus.MustRegister(MCPToolDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
