package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"retrievalagent/enrichment"
	"retrievalagent/internal/tracing"
	"retrievalagent/retrieval"
	"retrievalagent/websearch"
)

// ControllerConfig параметры адаптивного цикла поиска
type ControllerConfig = retrieval.Config

// TracingConfig параметры трассировки OpenTelemetry
type TracingConfig = tracing.Config

// Config конфигурация приложения
type Config struct {
	// Сервер
	Server ServerConfig `yaml:"server"`

	// Логирование
	Log LogConfig `yaml:"log"`

	// Контроллер поиска
	Controller ControllerConfig `yaml:"controller"`

	// Источники мест
	Providers ProvidersConfig `yaml:"providers"`

	// Обогащение финалистов
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Советник по ослаблениям
	Advisor AdvisorConfig `yaml:"advisor"`

	// Авторизация API
	Auth AuthConfig `yaml:"auth"`

	// Трассировка
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RunTimeout ограничение на один запуск поиска через API
	RunTimeout     time.Duration `yaml:"run_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig конфигурация логирования
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text или json
}

// ProvidersConfig конфигурация источников мест и роутера
type ProvidersConfig struct {
	// Strategy ordered дает одинаковый результат от запуска к запуску;
	// round_robin и weighted зависят от предыдущих запусков в том же процессе
	Strategy    websearch.RouterStrategy `yaml:"strategy"`
	MaxAttempts int                      `yaml:"max_attempts"`
	RetryDelays []time.Duration          `yaml:"retry_delays"`
	Cache       websearch.CacheConfig    `yaml:"cache"`

	Google  GoogleConfig  `yaml:"google"`
	Catalog CatalogConfig `yaml:"catalog"`
	Elastic ElasticConfig `yaml:"elastic"`
}

// GoogleConfig конфигурация Google Places
type GoogleConfig struct {
	Enabled   bool          `yaml:"enabled"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Region    string        `yaml:"region"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit time.Duration `yaml:"rate_limit"`
	PageSize  int           `yaml:"page_size"`
	Priority  int           `yaml:"priority"`
}

// CatalogConfig конфигурация офлайн-каталога SQLite
type CatalogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	Limit    int    `yaml:"limit"`
	Priority int    `yaml:"priority"`
}

// ElasticConfig конфигурация индекса Elasticsearch
type ElasticConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Index    string `yaml:"index"`
	PageSize int    `yaml:"page_size"`
	Priority int    `yaml:"priority"`
}

// EnrichmentConfig конфигурация обогащения
type EnrichmentConfig struct {
	Enabled bool                   `yaml:"enabled"`
	Cache   enrichment.CacheConfig `yaml:"cache"`
}

// AdvisorConfig конфигурация LLM советника
type AdvisorConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig конфигурация JWT авторизации.
// Пустой SigningKey отключает проверку токенов.
type AuthConfig struct {
	SigningKey string        `yaml:"signing_key"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	// Users логины и bcrypt-хэши паролей
	Users map[string]string `yaml:"users"`
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "9999",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			RunTimeout:      4 * time.Minute,
			AllowedOrigins:  []string{"*"},
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Controller: retrieval.DefaultConfig(),
		Providers: ProvidersConfig{
			Strategy:    websearch.StrategyOrdered,
			RetryDelays: append([]time.Duration(nil), websearch.DefaultRetryDelays...),
			Cache: websearch.CacheConfig{
				Enabled:         true,
				TTL:             time.Hour,
				CleanupInterval: 10 * time.Minute,
				MaxSize:         5000,
			},
			Google: GoogleConfig{
				Region:    "Singapore",
				Timeout:   10 * time.Second,
				RateLimit: 500 * time.Millisecond,
				PageSize:  20,
				Priority:  3,
			},
			Catalog: CatalogConfig{
				Enabled:  true,
				Path:     "places.db",
				Limit:    60,
				Priority: 2,
			},
			Elastic: ElasticConfig{
				Index:    "places",
				PageSize: 50,
				Priority: 1,
			},
		},
		Enrichment: EnrichmentConfig{
			Enabled: true,
			Cache:   enrichment.DefaultCacheConfig(),
		},
		Advisor: AdvisorConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML файл
// (если path не пустой), затем переменные окружения
func LoadConfig(path string) (*Config, error) {
	config := GetDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()

	// Валидация
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// applyEnv переопределяет значения переменными окружения
func (c *Config) applyEnv() {
	// Сервер
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.RunTimeout = getEnvDuration("SERVER_RUN_TIMEOUT", c.Server.RunTimeout)

	// Логирование
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	// Контроллер
	c.Controller.MaxIterations = getEnvInt("RETRIEVAL_MAX_ITERATIONS", c.Controller.MaxIterations)
	c.Controller.MaxConcurrency = getEnvInt("RETRIEVAL_MAX_CONCURRENCY", c.Controller.MaxConcurrency)
	c.Controller.BalanceFactor = getEnvFloat("RETRIEVAL_BALANCE_FACTOR", c.Controller.BalanceFactor)

	// Google Places включается наличием ключа
	if key := os.Getenv("GOOGLE_PLACES_API_KEY"); key != "" {
		c.Providers.Google.APIKey = key
		c.Providers.Google.Enabled = true
	}
	c.Providers.Google.Enabled = getEnvBool("GOOGLE_PLACES_ENABLED", c.Providers.Google.Enabled)

	// Каталог
	c.Providers.Catalog.Path = getEnv("CATALOG_DATABASE_PATH", c.Providers.Catalog.Path)
	c.Providers.Catalog.Enabled = getEnvBool("CATALOG_ENABLED", c.Providers.Catalog.Enabled)

	// Elasticsearch включается наличием адреса
	if url := os.Getenv("ELASTICSEARCH_URL"); url != "" {
		c.Providers.Elastic.URL = url
		c.Providers.Elastic.Enabled = true
	}
	c.Providers.Elastic.Index = getEnv("ELASTICSEARCH_INDEX", c.Providers.Elastic.Index)

	// Советник
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.Advisor.APIKey = key
	}
	c.Advisor.Model = getEnv("ADVISOR_MODEL", c.Advisor.Model)
	c.Advisor.Enabled = getEnvBool("ADVISOR_ENABLED", c.Advisor.Enabled)

	c.Enrichment.Enabled = getEnvBool("ENRICHMENT_ENABLED", c.Enrichment.Enabled)

	// Авторизация
	c.Auth.SigningKey = getEnv("JWT_SIGNING_KEY", c.Auth.SigningKey)
	c.Auth.TokenTTL = getEnvDuration("JWT_TOKEN_TTL", c.Auth.TokenTTL)

	// Трассировка
	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Exporter = getEnv("TRACING_EXPORTER", c.Tracing.Exporter)
	c.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", c.Tracing.SampleRate)
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool или возвращает значение по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
