// Package metrics provides Prometheus metrics for the SkyBox sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Indexer metrics
	messagesIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_messages_indexed_total",
			Help: "Total remote messages indexed into saved items",
		},
		[]string{"direction"}, // "forward" or "backfill"
	)

	backfillBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_backfill_batches_total",
			Help: "Total backfill batches by outcome",
		},
		[]string{"status"},
	)

	indexedItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skybox_indexed_items",
			Help: "Number of saved items currently in the local index",
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skybox_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skybox_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	// Mutation metrics
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_mutations_total",
			Help: "Total virtual filesystem mutations",
		},
		[]string{"operation", "status"},
	)

	remoteDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_remote_deletes_total",
			Help: "Total remote message deletions",
		},
		[]string{"status"},
	)

	// Pagination cache metrics
	pageCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_page_cache_lookups_total",
			Help: "Pagination cache lookups by result",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	pageCacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skybox_page_cache_invalidations_total",
			Help: "Total pagination cache entries dropped by mutations",
		},
	)

	// Thumbnail metrics
	thumbnailFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_thumbnail_fetches_total",
			Help: "Total thumbnail fetches by outcome",
		},
		[]string{"status"},
	)

	thumbnailFetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skybox_thumbnail_fetches_in_flight",
			Help: "Number of thumbnail fetches currently in flight",
		},
	)

	// Event metrics
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skybox_events_published_total",
			Help: "Total change events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordMessagesIndexed records messages indexed in a given direction.
func RecordMessagesIndexed(direction string, count int) {
	messagesIndexedTotal.WithLabelValues(direction).Add(float64(count))
}

// RecordBackfillBatch records the outcome of a backfill batch.
func RecordBackfillBatch(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	backfillBatchesTotal.WithLabelValues(status).Inc()
}

// SetIndexedItems sets the current saved item count.
func SetIndexedItems(count int64) {
	indexedItems.Set(float64(count))
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(query string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// SetDBConnectionsOpen sets the number of open database connections.
func SetDBConnectionsOpen(count int) {
	dbConnectionsOpen.Set(float64(count))
}

// RecordMutation records a virtual filesystem mutation.
func RecordMutation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	mutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRemoteDelete records a remote delete round trip.
func RecordRemoteDelete(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	remoteDeletesTotal.WithLabelValues(status).Inc()
}

// RecordPageCacheLookup records a pagination cache hit or miss.
func RecordPageCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	pageCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordPageCacheInvalidations records dropped pagination cache entries.
func RecordPageCacheInvalidations(count int) {
	pageCacheInvalidationsTotal.Add(float64(count))
}

// RecordThumbnailFetch records a thumbnail fetch outcome.
func RecordThumbnailFetch(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	thumbnailFetchesTotal.WithLabelValues(status).Inc()
}

// AddThumbnailFetchInFlight adjusts the in-flight thumbnail fetch gauge.
func AddThumbnailFetchInFlight(delta int) {
	thumbnailFetchesInFlight.Add(float64(delta))
}

// RecordEventPublished records a change event publication.
func RecordEventPublished(eventType string) {
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}
