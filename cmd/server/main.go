// Package main запускает сервис журналов контроллера душа
// Сервис реализует:
// - HTTP API для приема показаний датчика и завершенных сеансов
// - Детекцию фронтов нагрева и остывания по журналу показаний
// - Журнал сеансов с контрольной суммой и старением по циклам
// - Зеркалирование телеметрии в Redis
// - Экспорт метрик в Prometheus
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shower-monitor/internal/analytics"
	"shower-monitor/internal/cache"
	"shower-monitor/internal/config"
	"shower-monitor/internal/handlers"
	"shower-monitor/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	log.Println("Starting Shower Monitor...")
	log.Printf("Go version: %s", runtime.Version())

	// Загружаем конфигурацию
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	log.Printf("Sample log capacity %d, session log capacity %d",
		cfg.Logs.SampleCapacity, cfg.Logs.EventCapacity)

	// Инициализируем анализатор
	analyzer := analytics.NewAnalyzer(cfg.Logs, cfg.Trend, cfg.BufferSize)
	analyzer.Start()

	// Инициализируем зеркало в Redis
	var redisCache *cache.RedisCache
	if cfg.Redis.IsEnabled() {
		redisCache = connectRedis(cfg)
	}

	// Интерфейс остается nil, если Redis недоступен
	var mirror handlers.Mirror
	if redisCache != nil {
		mirror = redisCache
	}
	handler := handlers.NewHandler(analyzer, mirror)

	// Настраиваем маршруты
	router := mux.NewRouter()
	handler.Register(router)

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware)
	router.Use(metricsMiddleware)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Старение журнала сеансов по таймеру
	if cfg.CycleInterval > 0 {
		go cycleLoop(ctx, handler, cfg.CycleInterval)
		log.Printf("Session aging every %s", cfg.CycleInterval)
	}

	// Запускаем горутину для обновления метрик
	go updateMetricsLoop(ctx, analyzer)

	// Обрабатываем результаты фонового анализа
	go handler.ConsumeResults(ctx)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		log.Printf("Endpoints:")
		log.Printf("  POST /readings         - Submit a temperature reading")
		log.Printf("  POST /readings/batch   - Submit batch readings")
		log.Printf("  GET  /readings         - Sample log contents")
		log.Printf("  GET  /readings/{i}     - Reading at position i")
		log.Printf("  GET  /readings/latest  - Latest readings from Redis")
		log.Printf("  GET  /trend            - Monotonicity and fast change")
		log.Printf("  POST /sessions         - Record a shower session")
		log.Printf("  GET  /sessions         - Session log contents")
		log.Printf("  POST /tick             - Age sessions by one cycle")
		log.Printf("  GET  /health           - Health check")
		log.Printf("  GET  /stats            - Service statistics")
		log.Printf("  GET  /prometheus       - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-stop
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Сначала останавливаем прием запросов, затем анализатор
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	analyzer.Stop()

	if redisCache != nil {
		redisCache.Close()
	}

	log.Println("Server stopped")
}

// connectRedis пробует подключиться к Redis с повторами; при неудаче
// сервис работает без зеркала
func connectRedis(cfg *config.Config) *cache.RedisCache {
	var lastErr error
	for i := 0; i < 5; i++ {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Logs.SampleCapacity, cfg.Logs.EventCapacity)
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
			return redisCache
		}
		lastErr = err
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < 4 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	log.Printf("Warning: Failed to connect to Redis, running without cache: %v", lastErr)
	return nil
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// cycleLoop периодически старит журнал сеансов
func cycleLoop(ctx context.Context, handler *handlers.Handler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			handler.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// metricsMiddleware учитывает запросы, находящиеся в обработке
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.InFlightRequests.Inc()
		defer metrics.InFlightRequests.Dec()
		next.ServeHTTP(w, r)
	})
}

// updateMetricsLoop периодически обновляет метрики журналов
func updateMetricsLoop(ctx context.Context, analyzer *analytics.Analyzer) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.UpdateLogMetrics(analyzer.Stats())
		case <-ctx.Done():
			return
		}
	}
}
