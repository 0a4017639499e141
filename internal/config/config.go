// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Хранилища, которые умеет поднимать app.New.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Ключ админки хранится только как хеш Argon2id (scripts/generate_hash.go).
	// Пустое значение — админские ручки выключены.
	AdminKeyHash string `envconfig:"ADMIN_KEY_HASH"`

	// --- Database ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"orbit"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"business_orbit"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// postgres | memory (memory — для локального запуска без БД)
	AppStore string `envconfig:"APP_STORE" default:"postgres"`

	// Верхняя граница для одной операции (начисление, сводка, шаг decay).
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" default:"5s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Rewards ---
	CredibilityThreshold int64 `envconfig:"CREDIBILITY_THRESHOLD" default:"50"`
	ThankYouCooldownDays int   `envconfig:"THANK_YOU_COOLDOWN_DAYS" default:"7"`
	ThankYouMaxLength    int   `envconfig:"THANK_YOU_MAX_LENGTH" default:"500"`
	SummaryRecentLimit   int   `envconfig:"SUMMARY_RECENT_LIMIT" default:"50"`

	// --- Decay ---
	DecaySchedule       string `envconfig:"DECAY_SCHEDULE" default:"0 3 1 * *"`
	DecayTimezone       string `envconfig:"DECAY_TIMEZONE" default:"UTC"`
	DecayInactivityDays int    `envconfig:"DECAY_INACTIVITY_DAYS" default:"30"`
	DecayPercent        int64  `envconfig:"DECAY_PERCENT" default:"5"`

	// --- Identity cache ---
	UserCacheSize int           `envconfig:"USER_CACHE_SIZE" default:"10000"`
	UserCacheTTL  time.Duration `envconfig:"USER_CACHE_TTL" default:"5m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureDecayEnabled    bool `envconfig:"FEATURE_DECAY_ENABLED" default:"true"`
	FeatureThankYouEnabled bool `envconfig:"FEATURE_THANK_YOU_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	switch c.AppStore {
	case StorePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для APP_STORE=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("неизвестный APP_STORE %q", c.AppStore)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("OPERATION_TIMEOUT должен быть > 0")
	}
	if c.CredibilityThreshold < 0 {
		return fmt.Errorf("CREDIBILITY_THRESHOLD не может быть отрицательным")
	}
	if c.ThankYouCooldownDays < 0 {
		return fmt.Errorf("THANK_YOU_COOLDOWN_DAYS не может быть отрицательным")
	}
	if c.ThankYouMaxLength <= 0 {
		return fmt.Errorf("THANK_YOU_MAX_LENGTH должен быть > 0")
	}
	if c.SummaryRecentLimit <= 0 {
		return fmt.Errorf("SUMMARY_RECENT_LIMIT должен быть > 0")
	}
	if c.DecayInactivityDays <= 0 {
		return fmt.Errorf("DECAY_INACTIVITY_DAYS должен быть > 0")
	}
	if c.DecayPercent < 0 || c.DecayPercent > 100 {
		return fmt.Errorf("DECAY_PERCENT должен быть в диапазоне 0..100")
	}
	if c.UserCacheSize <= 0 {
		return fmt.Errorf("USER_CACHE_SIZE должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
