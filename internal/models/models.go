// Package models содержит структуры данных API сервиса
package models

import "time"

// Reading представляет показание датчика температуры
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ReadingsBatch представляет пакет показаний для массовой загрузки
type ReadingsBatch struct {
	Readings []Reading `json:"readings"`
}

// AnalysisResult содержит результат анализа после добавления показания
type AnalysisResult struct {
	Timestamp   time.Time `json:"timestamp"`
	Value       float64   `json:"value"`
	Filled      int       `json:"filled"`
	Warming     bool      `json:"warming"`
	Cooling     bool      `json:"cooling"`
	WarmingEdge bool      `json:"warming_edge"`
	CoolingEdge bool      `json:"cooling_edge"`
}

// Session представляет завершенный сеанс душа
type Session struct {
	Temperature uint8  `json:"temperature"`
	Duration    uint8  `json:"duration"`
	Age         uint16 `json:"age_in_cycles"`
}

// SessionsResponse содержимое журнала сеансов
type SessionsResponse struct {
	Capacity int       `json:"capacity"`
	Filled   int       `json:"filled"`
	Checksum uint16    `json:"checksum"`
	Sessions []Session `json:"sessions"`
}

// Summary описательная статистика по заполненным показаниям
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// ReadingsResponse содержимое журнала показаний
type ReadingsResponse struct {
	Capacity int       `json:"capacity"`
	Filled   int       `json:"filled"`
	Values   []float64 `json:"values"`
	Summary  Summary   `json:"summary"`
}

// TrendResponse результат анализа диапазона журнала
type TrendResponse struct {
	Start      int     `json:"start"`
	Finish     int     `json:"finish"`
	Trend      string  `json:"trend"`
	Window     int     `json:"window"`
	Limit      float64 `json:"limit"`
	FastChange string  `json:"fast_change"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	ReadingsTotal   int64  `json:"readings_total"`
	WarmingEdges    int64  `json:"warming_edges"`
	CoolingEdges    int64  `json:"cooling_edges"`
	SamplesFilled   int    `json:"samples_filled"`
	SessionsFilled  int    `json:"sessions_filled"`
	SessionChecksum uint16 `json:"session_checksum"`
}
