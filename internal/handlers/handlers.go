// Package handlers содержит HTTP обработчики для API
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"shower-monitor/internal/analytics"
	"shower-monitor/internal/cache"
	"shower-monitor/internal/eventlog"
	"shower-monitor/internal/metrics"
	"shower-monitor/internal/models"
	"shower-monitor/internal/samplelog"
)

const (
	// DefaultTrendWindow окно поиска резких изменений по умолчанию
	DefaultTrendWindow = 3
	// DefaultTrendLimit порог резкого изменения по умолчанию
	DefaultTrendLimit = 1.0
)

// Mirror зеркало телеметрии; реализуется *cache.RedisCache
type Mirror interface {
	CacheReading(models.Reading) error
	CacheSession(models.Session) error
	CacheAnalysisResult(models.AnalysisResult) error
	RecordEdges(models.AnalysisResult) error
	GetLatestReadings(count int64) ([]models.Reading, error)
	GetCounter(key string) (int64, error)
	Ping() error
}

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	analyzer  *analytics.Analyzer
	cache     Mirror
	startTime time.Time
}

// NewHandler создает новый обработчик; cache может быть nil
func NewHandler(analyzer *analytics.Analyzer, cache Mirror) *Handler {
	return &Handler{
		analyzer:  analyzer,
		cache:     cache,
		startTime: time.Now(),
	}
}

// Register регистрирует маршруты API
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/readings", h.ReadingHandler).Methods("POST")
	router.HandleFunc("/readings", h.ReadingsHandler).Methods("GET")
	router.HandleFunc("/readings/batch", h.BatchReadingsHandler).Methods("POST")
	router.HandleFunc("/readings/latest", h.LatestReadingsHandler).Methods("GET")
	router.HandleFunc("/readings/{index:-?[0-9]+}", h.ReadingAtHandler).Methods("GET")
	router.HandleFunc("/trend", h.TrendHandler).Methods("GET")
	router.HandleFunc("/sessions", h.SessionHandler).Methods("POST")
	router.HandleFunc("/sessions", h.SessionsHandler).Methods("GET")
	router.HandleFunc("/sessions/{index:-?[0-9]+}", h.SessionAtHandler).Methods("GET")
	router.HandleFunc("/tick", h.TickHandler).Methods("POST")
	router.HandleFunc("/health", h.HealthHandler).Methods("GET")
	router.HandleFunc("/stats", h.StatsHandler).Methods("GET")
}

// ReadingHandler обрабатывает POST /readings - прием показания
func (h *Handler) ReadingHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/readings", r.Method))
	defer timer.ObserveDuration()

	var reading models.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		h.respondError(w, r, "/readings", "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	// async=true ставит показание в очередь фонового анализатора
	if r.URL.Query().Get("async") == "true" {
		if reading.Timestamp.IsZero() {
			reading.Timestamp = time.Now()
		}
		if !h.analyzer.Submit(reading) {
			h.respondError(w, r, "/readings", "Queue full", http.StatusServiceUnavailable)
			return
		}
		h.respondJSON(w, r, "/readings", map[string]bool{"queued": true}, http.StatusAccepted)
		return
	}

	result := h.ingest(reading)

	h.respondJSON(w, r, "/readings", result, http.StatusOK)
}

// BatchReadingsHandler обрабатывает POST /readings/batch - массовая загрузка показаний
func (h *Handler) BatchReadingsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/readings/batch", r.Method))
	defer timer.ObserveDuration()

	var batch models.ReadingsBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.respondError(w, r, "/readings/batch", "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	results := make([]models.AnalysisResult, 0, len(batch.Readings))
	edges := 0
	for _, reading := range batch.Readings {
		result := h.ingest(reading)
		if result.WarmingEdge || result.CoolingEdge {
			edges++
		}
		results = append(results, result)
	}

	response := map[string]interface{}{
		"processed":   len(batch.Readings),
		"edges_found": edges,
		"results":     results,
	}
	h.respondJSON(w, r, "/readings/batch", response, http.StatusOK)
}

// ingest анализирует показание и обновляет метрики и зеркало
func (h *Handler) ingest(reading models.Reading) models.AnalysisResult {
	// Устанавливаем временную метку, если не указана
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	startAnalysis := time.Now()
	result := h.analyzer.AnalyzeSync(reading)
	metrics.AnalysisLatency.Observe(time.Since(startAnalysis).Seconds())

	h.publish(reading, result)
	return result
}

// ConsumeResults обрабатывает результаты фонового анализатора
// (POST /readings?async=true) до отмены ctx
func (h *Handler) ConsumeResults(ctx context.Context) {
	for {
		select {
		case result := <-h.analyzer.Results():
			h.publish(models.Reading{Timestamp: result.Timestamp, Value: result.Value}, result)
		case <-ctx.Done():
			return
		}
	}
}

// publish обновляет метрики и зеркало для проанализированного показания
func (h *Handler) publish(reading models.Reading, result models.AnalysisResult) {
	metrics.UpdateAnalysisMetrics(result)

	if result.WarmingEdge {
		log.Printf("Warming edge at %.2f", result.Value)
	}
	if result.CoolingEdge {
		log.Printf("Cooling edge at %.2f", result.Value)
	}

	if h.cache != nil {
		if err := h.cache.CacheReading(reading); err != nil {
			metrics.CacheErrors.Inc()
		}
		if err := h.cache.RecordEdges(result); err != nil {
			metrics.CacheErrors.Inc()
		}
		if err := h.cache.CacheAnalysisResult(result); err != nil {
			metrics.CacheErrors.Inc()
		}
	}
}

// ReadingsHandler обрабатывает GET /readings - содержимое журнала показаний
func (h *Handler) ReadingsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/readings", r.Method))
	defer timer.ObserveDuration()

	h.respondJSON(w, r, "/readings", h.analyzer.Readings(), http.StatusOK)
}

// ReadingAtHandler обрабатывает GET /readings/{index}
func (h *Handler) ReadingAtHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/readings/{index}"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		h.respondError(w, r, endpoint, "Invalid index", http.StatusBadRequest)
		return
	}

	value, err := h.analyzer.Reading(index)
	if err != nil {
		h.respondError(w, r, endpoint, err.Error(), statusFor(err))
		return
	}

	h.respondJSON(w, r, endpoint, map[string]interface{}{"index": index, "value": value}, http.StatusOK)
}

// LatestReadingsHandler возвращает последние показания из зеркала Redis
func (h *Handler) LatestReadingsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/readings/latest", r.Method))
	defer timer.ObserveDuration()

	count := int64(50)
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.ParseInt(countStr, 10, 64); err == nil && c > 0 && c <= 1000 {
			count = c
		}
	}

	if h.cache == nil {
		h.respondError(w, r, "/readings/latest", "Cache not available", http.StatusServiceUnavailable)
		return
	}

	readings, err := h.cache.GetLatestReadings(count)
	if err != nil {
		h.respondError(w, r, "/readings/latest", "Failed to get readings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, r, "/readings/latest", readings, http.StatusOK)
}

// TrendHandler обрабатывает GET /trend?start=&finish=&window=&limit=
func (h *Handler) TrendHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/trend", r.Method))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	start, err1 := strconv.Atoi(q.Get("start"))
	finish, err2 := strconv.Atoi(q.Get("finish"))
	if err := errors.Join(err1, err2); err != nil {
		h.respondError(w, r, "/trend", "start and finish are required integers", http.StatusBadRequest)
		return
	}

	window := DefaultTrendWindow
	if s := q.Get("window"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			h.respondError(w, r, "/trend", "Invalid window", http.StatusBadRequest)
			return
		}
		window = v
	}
	limit := DefaultTrendLimit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			h.respondError(w, r, "/trend", "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	h.respondJSON(w, r, "/trend", h.analyzer.Trend(start, finish, window, limit), http.StatusOK)
}

// SessionHandler обрабатывает POST /sessions - запись сеанса
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/sessions", r.Method))
	defer timer.ObserveDuration()

	var session models.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		h.respondError(w, r, "/sessions", "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	checksum := h.analyzer.RecordSession(session)
	metrics.SessionsRecorded.Inc()
	metrics.SessionChecksum.Set(float64(checksum))

	if h.cache != nil {
		if err := h.cache.CacheSession(session); err != nil {
			metrics.CacheErrors.Inc()
		}
	}

	h.respondJSON(w, r, "/sessions", map[string]interface{}{"checksum": checksum}, http.StatusCreated)
}

// SessionsHandler обрабатывает GET /sessions - содержимое журнала сеансов
func (h *Handler) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/sessions", r.Method))
	defer timer.ObserveDuration()

	h.respondJSON(w, r, "/sessions", h.analyzer.Sessions(), http.StatusOK)
}

// SessionAtHandler обрабатывает GET /sessions/{index}
func (h *Handler) SessionAtHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/sessions/{index}"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		h.respondError(w, r, endpoint, "Invalid index", http.StatusBadRequest)
		return
	}

	session, err := h.analyzer.Session(index)
	if err != nil {
		h.respondError(w, r, endpoint, err.Error(), statusFor(err))
		return
	}

	h.respondJSON(w, r, endpoint, session, http.StatusOK)
}

// TickHandler обрабатывает POST /tick - старение всех сеансов на один цикл
func (h *Handler) TickHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/tick", r.Method))
	defer timer.ObserveDuration()

	h.respondJSON(w, r, "/tick", map[string]interface{}{"checksum": h.Tick()}, http.StatusOK)
}

// Tick выполняет один цикл старения и обновляет метрики
func (h *Handler) Tick() uint16 {
	checksum := h.analyzer.Tick()
	metrics.CycleTicks.Inc()
	metrics.SessionChecksum.Set(float64(checksum))
	return checksum
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping() == nil {
		redisStatus = "connected"
	}

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}

	h.respondJSON(w, r, "/health", status, http.StatusOK)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/stats", r.Method))
	defer timer.ObserveDuration()

	response := h.analyzer.Stats()

	// Счетчики в Redis переживают перезапуск сервиса
	if h.cache != nil {
		if n, err := h.cache.GetCounter(cache.WarmingEdgesKey); err == nil && n > response.WarmingEdges {
			response.WarmingEdges = n
		}
		if n, err := h.cache.GetCounter(cache.CoolingEdgesKey); err == nil && n > response.CoolingEdges {
			response.CoolingEdges = n
		}
	}

	metrics.UpdateLogMetrics(response)

	h.respondJSON(w, r, "/stats", response, http.StatusOK)
}

// statusFor отображает ошибки журналов в HTTP статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, samplelog.ErrIndexOutOfRange), errors.Is(err, eventlog.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, samplelog.ErrEmptySlot), errors.Is(err, eventlog.ErrEmptySlot):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}, status int) {
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, endpoint, message string, status int) {
	h.respondJSON(w, r, endpoint, map[string]string{"error": message}, status)
}
