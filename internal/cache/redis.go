// Package cache зеркалирует показания, сеансы и счетчики фронтов в Redis
// для внешних панелей мониторинга. Обратно в журналы данные не читаются.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"shower-monitor/internal/models"
)

const (
	// LatestReadingsKey список последних показаний
	LatestReadingsKey = "readings:latest"
	// LatestSessionsKey список последних сеансов
	LatestSessionsKey = "sessions:latest"
	// AnalysisKeyPrefix префикс для результатов анализа
	AnalysisKeyPrefix = "analysis:"
	// WarmingEdgesKey счетчик фронтов нагрева
	WarmingEdgesKey = "edges:warming"
	// CoolingEdgesKey счетчик фронтов остывания
	CoolingEdgesKey = "edges:cooling"
	// DefaultTTL время жизни результата анализа
	DefaultTTL = 5 * time.Minute
)

// RedisCache реализует зеркало телеметрии в Redis
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
	// длина списков совпадает с емкостью журналов
	readingsLen int64
	sessionsLen int64
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(addr, password string, db int, readingsLen, sessionsLen int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client:      client,
		ctx:         ctx,
		readingsLen: int64(readingsLen),
		sessionsLen: int64(sessionsLen),
	}, nil
}

// CacheReading добавляет показание в начало списка последних показаний
func (r *RedisCache) CacheReading(m models.Reading) error {
	return r.pushTrimmed(LatestReadingsKey, m, r.readingsLen)
}

// CacheSession добавляет сеанс в начало списка последних сеансов
func (r *RedisCache) CacheSession(s models.Session) error {
	return r.pushTrimmed(LatestSessionsKey, s, r.sessionsLen)
}

func (r *RedisCache) pushTrimmed(key string, v interface{}, n int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(r.ctx, key, data)
	pipe.LTrim(r.ctx, key, 0, n-1)

	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

// GetLatestReadings возвращает последние count показаний
func (r *RedisCache) GetLatestReadings(count int64) ([]models.Reading, error) {
	data, err := r.client.LRange(r.ctx, LatestReadingsKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest readings: %w", err)
	}

	readings := make([]models.Reading, 0, len(data))
	for _, d := range data {
		var m models.Reading
		if err := json.Unmarshal([]byte(d), &m); err != nil {
			continue
		}
		readings = append(readings, m)
	}

	return readings, nil
}

// CacheAnalysisResult сохраняет результат анализа
func (r *RedisCache) CacheAnalysisResult(result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	key := fmt.Sprintf("%s%d", AnalysisKeyPrefix, result.Timestamp.UnixNano())
	return r.client.Set(r.ctx, key, data, DefaultTTL).Err()
}

// RecordEdges увеличивает счетчики фронтов из результата анализа
func (r *RedisCache) RecordEdges(result models.AnalysisResult) error {
	if !result.WarmingEdge && !result.CoolingEdge {
		return nil
	}
	pipe := r.client.Pipeline()
	if result.WarmingEdge {
		pipe.Incr(r.ctx, WarmingEdgesKey)
	}
	if result.CoolingEdge {
		pipe.Incr(r.ctx, CoolingEdgesKey)
	}
	_, err := pipe.Exec(r.ctx)
	return err
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(key string) (int64, error) {
	val, err := r.client.Get(r.ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
