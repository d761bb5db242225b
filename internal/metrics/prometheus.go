// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shower-monitor/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shower_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shower_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// ReadingsReceived количество полученных показаний
	ReadingsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shower_readings_received_total",
			Help: "Total number of temperature readings received",
		},
	)

	// SessionsRecorded количество записанных сеансов
	SessionsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shower_sessions_recorded_total",
			Help: "Total number of shower sessions recorded",
		},
	)

	// EdgesDetected количество фронтов по направлению
	EdgesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shower_edges_detected_total",
			Help: "Total number of warming/cooling edges detected",
		},
		[]string{"direction"},
	)

	// LatestReading последнее показание
	LatestReading = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shower_latest_reading",
			Help: "Most recent temperature reading",
		},
	)

	// SamplesFilled заполненность журнала показаний
	SamplesFilled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shower_samples_filled",
			Help: "Number of filled slots in the sample log",
		},
	)

	// SessionChecksum контрольная сумма журнала сеансов
	SessionChecksum = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shower_session_checksum",
			Help: "Current checksum of the session log",
		},
	)

	// CycleTicks количество циклов старения журнала сеансов
	CycleTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shower_cycle_ticks_total",
			Help: "Total number of session aging cycles",
		},
	)

	// CacheErrors ошибки записи в Redis
	CacheErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shower_cache_errors_total",
			Help: "Total number of failed Redis writes",
		},
	)

	// InFlightRequests количество обрабатываемых запросов
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shower_in_flight_requests",
			Help: "Number of requests currently being served",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shower_active_goroutines",
			Help: "Number of active goroutines",
		},
	)

	// AnalysisLatency время выполнения анализа
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shower_analysis_latency_seconds",
			Help:    "Trend analysis latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005},
		},
	)
)

// UpdateAnalysisMetrics обновляет метрики анализа
func UpdateAnalysisMetrics(result models.AnalysisResult) {
	ReadingsReceived.Inc()
	LatestReading.Set(result.Value)
	SamplesFilled.Set(float64(result.Filled))
	if result.WarmingEdge {
		EdgesDetected.WithLabelValues("warming").Inc()
	}
	if result.CoolingEdge {
		EdgesDetected.WithLabelValues("cooling").Inc()
	}
}

// UpdateLogMetrics обновляет метрики заполненности журналов
func UpdateLogMetrics(stats models.StatsResponse) {
	SamplesFilled.Set(float64(stats.SamplesFilled))
	SessionChecksum.Set(float64(stats.SessionChecksum))
	ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
}
