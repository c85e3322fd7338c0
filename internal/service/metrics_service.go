package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Diary outcomes recorded by ObserveDiary.
const (
	DiaryOutcomeProcessed = "processed"
	DiaryOutcomeSkipped   = "skipped"
)

// MetricsSnapshot is a lightweight view of the counters for admin consumption.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Aggregations             uint64    `json:"aggregations"`
	DiariesProcessed         uint64    `json:"diaries_processed"`
	DiariesSkipped           uint64    `json:"diaries_skipped"`
	DiaryPeakConcurrency     int       `json:"diary_peak_concurrency"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheHitRatio       prometheus.Gauge
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	dbQueryDuration     *prometheus.HistogramVec
	upstreamDuration    *prometheus.HistogramVec
	diaryOutcomes       *prometheus.CounterVec
	diaryConcurrency    prometheus.Histogram
	aggregationDuration *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	aggregationCount     uint64
	diaryProcessedCount  uint64
	diarySkippedCount    uint64
	diaryPeak            int64
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_api_request_duration_seconds",
		Help:    "Duration of schedule platform requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"endpoint", "status"})

	diaryOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_diaries_total",
		Help: "Diary fetches by outcome",
	}, []string{"outcome"})

	diaryConcurrency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stats_diary_peak_concurrency",
		Help:    "Highest number of diary fetches in flight during one run",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	aggregationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stats_aggregation_duration_seconds",
		Help:    "Duration of statistics aggregation runs",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"period", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, upstreamDuration, diaryOutcomes, diaryConcurrency, aggregationDuration, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		dbQueryDuration:     dbQueryDuration,
		upstreamDuration:    upstreamDuration,
		diaryOutcomes:       diaryOutcomes,
		diaryConcurrency:    diaryConcurrency,
		aggregationDuration: aggregationDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveUpstream records one schedule platform call. Status 0 means no response was received.
func (m *MetricsService) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = fmt.Sprintf("%d", status)
	}
	m.upstreamDuration.WithLabelValues(endpoint, label).Observe(duration.Seconds())
}

// ObserveDiaries adds the processed and skipped diary counts of one run.
func (m *MetricsService) ObserveDiaries(processed, skipped int) {
	if m == nil {
		return
	}
	m.diaryOutcomes.WithLabelValues(DiaryOutcomeProcessed).Add(float64(processed))
	m.diaryOutcomes.WithLabelValues(DiaryOutcomeSkipped).Add(float64(skipped))
	atomic.AddUint64(&m.diaryProcessedCount, uint64(processed))
	atomic.AddUint64(&m.diarySkippedCount, uint64(skipped))
}

// ObserveDiaryConcurrency records the in-flight peak reached by one run's diary fetches.
func (m *MetricsService) ObserveDiaryConcurrency(peak int) {
	if m == nil || peak <= 0 {
		return
	}
	m.diaryConcurrency.Observe(float64(peak))
	for {
		current := atomic.LoadInt64(&m.diaryPeak)
		if int64(peak) <= current || atomic.CompareAndSwapInt64(&m.diaryPeak, current, int64(peak)) {
			return
		}
	}
}

// ObserveAggregation records the duration of one aggregation run.
func (m *MetricsService) ObserveAggregation(periodKind string, succeeded bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !succeeded {
		result = "failed"
	}
	m.aggregationDuration.WithLabelValues(periodKind, result).Observe(duration.Seconds())
	atomic.AddUint64(&m.aggregationCount, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Aggregations:             atomic.LoadUint64(&m.aggregationCount),
		DiariesProcessed:         atomic.LoadUint64(&m.diaryProcessedCount),
		DiariesSkipped:           atomic.LoadUint64(&m.diarySkippedCount),
		DiaryPeakConcurrency:     int(atomic.LoadInt64(&m.diaryPeak)),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
