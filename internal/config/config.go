package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/validator"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Resolver ResolverConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" validate:"required"`
	Port     int    `env:"DB_PORT" validate:"min=1,max=65535"`
	User     string `env:"DB_USER" validate:"required"`
	Password string `env:"DB_PASSWORD" validate:"required"`
	Name     string `env:"DB_NAME" validate:"required"`
	SSLMode  string `env:"DB_SSL_MODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int    `env:"APP_PORT" validate:"min=1,max=65535"`
	Env      string `env:"APP_ENV" validate:"oneof=development staging production test"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Timezone string `env:"APP_TIMEZONE" validate:"required,timezone"`
	// Comma separated list of origins allowed by CORS.
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" validate:"required"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `env:"JWT_SECRET_KEY" validate:"required"`
	AccessExpiration time.Duration `env:"JWT_ACCESS_EXPIRATION_TIME" validate:"gte=0"`
}

// StorageConfig selects where uploaded export files are kept.
type StorageConfig struct {
	Backend   string `env:"STORAGE_BACKEND" validate:"oneof=local minio"`
	LocalPath string `env:"STORAGE_LOCAL_PATH" validate:"required_if=Backend local"`
	Endpoint  string `env:"S3_ENDPOINT" validate:"required_if=Backend minio"`
	AccessKey string `env:"S3_ACCESS_KEY" validate:"required_if=Backend minio"`
	SecretKey string `env:"S3_SECRET_KEY" validate:"required_if=Backend minio"`
	Bucket    string `env:"S3_BUCKET" validate:"required_if=Backend minio"`
	Region    string `env:"S3_REGION"`
	UseSSL    bool   `env:"S3_USE_SSL"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" validate:"gte=0"`
	MaxRetry int    `env:"QUEUE_MAX_RETRY" validate:"gte=0"`
}

// Enabled reports whether imports should go through the background queue.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ResolverConfig holds the attendance resolution thresholds.
type ResolverConfig struct {
	LateThresholdMinutes int           `env:"LATE_THRESHOLD_MINUTES" validate:"min=1"`
	AnomalyThreshold     time.Duration `env:"ANOMALY_THRESHOLD" validate:"gte=1m"`
	MinPairSpan          time.Duration `env:"MIN_PAIR_SPAN" validate:"gte=0"`
	AffinityMargin       time.Duration `env:"AFFINITY_MARGIN" validate:"gte=0"`
	MorningFrom          int           `env:"SHIFT_MORNING_FROM" validate:"min=0,max=23"`
	AfternoonFrom        int           `env:"SHIFT_AFTERNOON_FROM" validate:"min=0,max=23,gtfield=MorningFrom"`
	EveningFrom          int           `env:"SHIFT_EVENING_FROM" validate:"min=0,max=23,gtfield=AfternoonFrom"`
	NightFrom            int           `env:"SHIFT_NIGHT_FROM" validate:"min=0,max=23,gtfield=EveningFrom"`
	Workers              int           `env:"PROCESS_WORKERS" validate:"min=1,max=64"`
	StaleImportAfter     time.Duration `env:"STALE_IMPORT_AFTER" validate:"gte=1m"`
	AbsenceSweepLagDays  int           `env:"ABSENCE_SWEEP_LAG_DAYS" validate:"min=1,max=31"`
}

// Load reads the environment, preferring values already set over those in .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	p := &parser{}
	config := &Config{}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "bio_attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	config.App = AppConfig{
		Port:     p.int("APP_PORT", 8080),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "Asia/Manila"),

		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.duration("JWT_ACCESS_EXPIRATION_TIME", time.Hour),
	}

	config.Storage = StorageConfig{
		Backend:   getEnv("STORAGE_BACKEND", "local"),
		LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		Endpoint:  getEnv("S3_ENDPOINT", ""),
		AccessKey: getEnv("S3_ACCESS_KEY", ""),
		SecretKey: getEnv("S3_SECRET_KEY", ""),
		Bucket:    getEnv("S3_BUCKET", "biometric-exports"),
		Region:    getEnv("S3_REGION", "us-east-1"),
		UseSSL:    p.bool("S3_USE_SSL", false),
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       p.int("REDIS_DB", 0),
		MaxRetry: p.int("QUEUE_MAX_RETRY", 5),
	}

	config.Resolver = ResolverConfig{
		LateThresholdMinutes: p.int("LATE_THRESHOLD_MINUTES", 15),
		AnomalyThreshold:     p.duration("ANOMALY_THRESHOLD", 6*time.Hour),
		MinPairSpan:          p.duration("MIN_PAIR_SPAN", time.Hour),
		AffinityMargin:       p.duration("AFFINITY_MARGIN", 0),
		MorningFrom:          p.int("SHIFT_MORNING_FROM", 5),
		AfternoonFrom:        p.int("SHIFT_AFTERNOON_FROM", 12),
		EveningFrom:          p.int("SHIFT_EVENING_FROM", 17),
		NightFrom:            p.int("SHIFT_NIGHT_FROM", 21),
		Workers:              p.int("PROCESS_WORKERS", 4),
		StaleImportAfter:     p.duration("STALE_IMPORT_AFTER", time.Hour),
		AbsenceSweepLagDays:  p.int("ABSENCE_SWEEP_LAG_DAYS", 2),
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section's `validate` tags.
func (c *Config) Validate() error {
	for _, section := range []any{c.Database, c.App, c.JWT, c.Storage, c.Redis, c.Resolver} {
		if err := validator.Struct(section); err != nil {
			return err
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location loads the configured site timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}
