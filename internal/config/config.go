// Package config загружает конфигурацию сервиса из YAML-файла
// и переменных окружения
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"shower-monitor/internal/eventlog"
	"shower-monitor/internal/samplelog"
)

// Config содержит конфигурацию сервиса
type Config struct {
	Server        ServerConfig  `yaml:"server"`
	Redis         RedisConfig   `yaml:"redis"`
	Logs          LogsConfig    `yaml:"logs"`
	Trend         TrendConfig   `yaml:"trend"`
	BufferSize    int           `yaml:"buffer_size"`
	CycleInterval time.Duration `yaml:"cycle_interval"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig настройки зеркала телеметрии в Redis
type RedisConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IsEnabled по умолчанию Redis включен
func (r RedisConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// LogsConfig емкости журналов
type LogsConfig struct {
	SampleCapacity int `yaml:"sample_capacity"`
	EventCapacity  int `yaml:"event_capacity"`
}

// TrendConfig параметры детекции нагрева и остывания
type TrendConfig struct {
	WarmingChange float64 `yaml:"warming_change"`
	WarmingRange  int     `yaml:"warming_range"`
	CoolingChange float64 `yaml:"cooling_change"`
	CoolingRange  int     `yaml:"cooling_range"`
	CoolingWindow int     `yaml:"cooling_window"`
	CoolingLimit  float64 `yaml:"cooling_limit"`
}

// Load читает YAML-файл (пустой путь означает только значения по умолчанию),
// применяет переменные окружения и проверяет результат
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Logs.SampleCapacity == 0 {
		c.Logs.SampleCapacity = samplelog.DefaultCapacity
	}
	if c.Logs.EventCapacity == 0 {
		c.Logs.EventCapacity = eventlog.DefaultCapacity
	}
	if c.Trend.WarmingChange == 0 {
		c.Trend.WarmingChange = 1.0
	}
	if c.Trend.WarmingRange == 0 {
		c.Trend.WarmingRange = 4
	}
	if c.Trend.CoolingChange == 0 {
		c.Trend.CoolingChange = 2.0
	}
	if c.Trend.CoolingRange == 0 {
		c.Trend.CoolingRange = 10
	}
	if c.Trend.CoolingWindow == 0 {
		c.Trend.CoolingWindow = 3
	}
	if c.Trend.CoolingLimit == 0 {
		c.Trend.CoolingLimit = 1.5
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
}

// applyEnv переопределяет значения из переменных окружения
func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &c.Redis.DB},
		{"SAMPLE_CAPACITY", &c.Logs.SampleCapacity},
		{"EVENT_CAPACITY", &c.Logs.EventCapacity},
		{"BUFFER_SIZE", &c.BufferSize},
	}
	for _, e := range ints {
		v, err := getEnvInt(e.key, *e.dst)
		if err != nil {
			return err
		}
		*e.dst = v
	}

	if value := os.Getenv("CYCLE_INTERVAL"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("CYCLE_INTERVAL: %w", err)
		}
		c.CycleInterval = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.Logs.SampleCapacity <= 0 {
		return fmt.Errorf("logs.sample_capacity must be positive")
	}
	if c.Logs.EventCapacity <= 0 {
		return fmt.Errorf("logs.event_capacity must be positive")
	}
	if c.Trend.WarmingRange < 1 || c.Trend.WarmingRange >= c.Logs.SampleCapacity {
		return fmt.Errorf("trend.warming_range must be in [1, %d)", c.Logs.SampleCapacity)
	}
	if c.Trend.CoolingRange < 1 || c.Trend.CoolingRange >= c.Logs.SampleCapacity {
		return fmt.Errorf("trend.cooling_range must be in [1, %d)", c.Logs.SampleCapacity)
	}
	if c.Trend.CoolingWindow < 2 || c.Trend.CoolingWindow > c.Trend.CoolingRange+1 {
		return fmt.Errorf("trend.cooling_window must be in [2, %d]", c.Trend.CoolingRange+1)
	}
	if c.Trend.WarmingChange <= 0 || c.Trend.CoolingChange <= 0 || c.Trend.CoolingLimit <= 0 {
		return fmt.Errorf("trend changes and limits must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive")
	}
	if c.CycleInterval < 0 {
		return fmt.Errorf("cycle_interval must not be negative")
	}
	return nil
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
