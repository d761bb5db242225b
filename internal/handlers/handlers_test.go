package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"shower-monitor/internal/analytics"
	"shower-monitor/internal/config"
	"shower-monitor/internal/metrics"
	"shower-monitor/internal/models"
)

// recordingMirror запоминает записи в зеркало вместо Redis
type recordingMirror struct {
	mu        sync.Mutex
	readings  []models.Reading
	results   []models.AnalysisResult
	resultErr error
}

func (m *recordingMirror) CacheReading(r models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, r)
	return nil
}

func (m *recordingMirror) CacheSession(models.Session) error { return nil }

func (m *recordingMirror) CacheAnalysisResult(r models.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resultErr != nil {
		return m.resultErr
	}
	m.results = append(m.results, r)
	return nil
}

func (m *recordingMirror) RecordEdges(models.AnalysisResult) error { return nil }

func (m *recordingMirror) GetLatestReadings(count int64) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Reading, 0, len(m.readings))
	for i := len(m.readings) - 1; i >= 0 && int64(len(out)) < count; i-- {
		out = append(out, m.readings[i])
	}
	return out, nil
}

func (m *recordingMirror) GetCounter(string) (int64, error) { return 0, nil }

func (m *recordingMirror) Ping() error { return nil }

func (m *recordingMirror) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readings), len(m.results)
}

func newTestAnalyzer() *analytics.Analyzer {
	return analytics.NewAnalyzer(
		config.LogsConfig{SampleCapacity: 8, EventCapacity: 4},
		config.TrendConfig{
			WarmingChange: 1.0,
			WarmingRange:  3,
			CoolingChange: 2.0,
			CoolingRange:  5,
			CoolingWindow: 3,
			CoolingLimit:  2.5,
		},
		16,
	)
}

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	NewHandler(newTestAnalyzer(), nil).Register(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReadingHandler(t *testing.T) {
	router := newTestRouter()
	before := testutil.ToFloat64(metrics.EdgesDetected.WithLabelValues("warming"))

	var last models.AnalysisResult
	for _, v := range []float64{30, 30, 30, 30, 31} {
		rec := do(t, router, http.MethodPost, "/readings", models.Reading{Value: v})
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /readings: expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if err := json.NewDecoder(rec.Body).Decode(&last); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}

	if !last.WarmingEdge || last.Filled != 5 || last.Timestamp.IsZero() {
		t.Errorf("Unexpected result %+v", last)
	}
	if got := testutil.ToFloat64(metrics.EdgesDetected.WithLabelValues("warming")); got != before+1 {
		t.Errorf("Expected warming edge counter %.0f, got %.0f", before+1, got)
	}

	rec := do(t, router, http.MethodGet, "/readings/0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /readings/0: expected 200, got %d", rec.Code)
	}
	var at map[string]float64
	json.NewDecoder(rec.Body).Decode(&at)
	if at["value"] != 31 {
		t.Errorf("Expected newest value 31, got %v", at["value"])
	}
}

func TestReadingHandler_BadRequests(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/readings", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", rec.Code)
	}

	for _, path := range []string{"/readings/8", "/readings/-1", "/readings/2", "/sessions/4", "/sessions/0"} {
		if rec := do(t, router, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rec.Code)
		}
	}

	if rec := do(t, router, http.MethodGet, "/readings/latest", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without cache, got %d", rec.Code)
	}

	if rec := do(t, router, http.MethodGet, "/trend?start=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without finish, got %d", rec.Code)
	}

	oversized := map[string]int{"temperature": 300, "duration": 5}
	if rec := do(t, router, http.MethodPost, "/sessions", oversized); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range temperature, got %d", rec.Code)
	}
}

func TestBatchAndTrend(t *testing.T) {
	router := newTestRouter()

	batch := models.ReadingsBatch{Readings: []models.Reading{{Value: 32.5}, {Value: 33}, {Value: 32}}}
	rec := do(t, router, http.MethodPost, "/readings/batch", batch)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /readings/batch: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/trend?start=0&finish=2&window=3&limit=1.0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /trend: expected 200, got %d", rec.Code)
	}
	var trend models.TrendResponse
	json.NewDecoder(rec.Body).Decode(&trend)
	if trend.Trend != "non_monotonic" || trend.FastChange != "detected" {
		t.Errorf("Unexpected trend %+v", trend)
	}

	rec = do(t, router, http.MethodGet, "/readings", nil)
	var readings models.ReadingsResponse
	json.NewDecoder(rec.Body).Decode(&readings)
	if readings.Filled != 3 || readings.Capacity != 8 || readings.Summary.Max != 33 {
		t.Errorf("Unexpected readings %+v", readings)
	}
}

func TestSessionsAndTick(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/sessions", models.Session{Temperature: 40, Duration: 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /sessions: expected 201, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/tick", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /tick: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/sessions", nil)
	var sessions models.SessionsResponse
	json.NewDecoder(rec.Body).Decode(&sessions)
	if sessions.Checksum != 51 || sessions.Filled != 1 || sessions.Sessions[0].Age != 1 {
		t.Errorf("Unexpected sessions %+v", sessions)
	}

	rec = do(t, router, http.MethodGet, "/stats", nil)
	var stats models.StatsResponse
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.SessionsFilled != 1 || stats.SessionChecksum != 51 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	rec = do(t, router, http.MethodGet, "/health", nil)
	var health models.HealthStatus
	json.NewDecoder(rec.Body).Decode(&health)
	if health.Status != "healthy" || health.Redis != "disconnected" {
		t.Errorf("Unexpected health %+v", health)
	}
}

func TestReadingHandler_Async(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/readings?async=true", models.Reading{Value: 35})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 for queued reading, got %d", rec.Code)
	}

	// Воркер не запущен: показание остается в очереди
	rec = do(t, router, http.MethodGet, "/readings", nil)
	var readings models.ReadingsResponse
	json.NewDecoder(rec.Body).Decode(&readings)
	if readings.Filled != 0 {
		t.Errorf("Expected queued reading to stay out of the log, got %d filled", readings.Filled)
	}
}

func TestReadingHandler_AsyncReachesMirror(t *testing.T) {
	analyzer := newTestAnalyzer()
	analyzer.Start()
	defer analyzer.Stop()

	mirror := &recordingMirror{}
	handler := NewHandler(analyzer, mirror)
	router := mux.NewRouter()
	handler.Register(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handler.ConsumeResults(ctx)

	for _, v := range []float64{30, 31, 32} {
		if rec := do(t, router, http.MethodPost, "/readings?async=true", models.Reading{Value: v}); rec.Code != http.StatusAccepted {
			t.Fatalf("Expected 202 for queued reading, got %d", rec.Code)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		readings, results := mirror.counts()
		if readings == 3 && results == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 3 mirrored readings and results, got %d and %d", readings, results)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := do(t, router, http.MethodGet, "/readings/latest?count=1", nil)
	var latest []models.Reading
	json.NewDecoder(rec.Body).Decode(&latest)
	if len(latest) != 1 || latest[0].Value != 32 || latest[0].Timestamp.IsZero() {
		t.Errorf("Unexpected latest readings %+v", latest)
	}
}

func TestReadingHandler_MirrorErrorsCounted(t *testing.T) {
	mirror := &recordingMirror{resultErr: errors.New("redis down")}
	router := mux.NewRouter()
	NewHandler(newTestAnalyzer(), mirror).Register(router)

	before := testutil.ToFloat64(metrics.CacheErrors)
	if rec := do(t, router, http.MethodPost, "/readings", models.Reading{Value: 30}); rec.Code != http.StatusOK {
		t.Fatalf("POST /readings: expected 200, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(metrics.CacheErrors); got != before+1 {
		t.Errorf("Expected cache errors %.0f, got %.0f", before+1, got)
	}
	if readings, _ := mirror.counts(); readings != 1 {
		t.Errorf("Expected reading to be mirrored despite result error, got %d", readings)
	}
}
