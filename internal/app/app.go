// Package app wires configuration into the repositories and services shared by the api,
// worker and bioimport binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/queue"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/bio-attendance-go/internal/repository/postgresql"
	biometricService "github.com/cmlabs-hris/bio-attendance-go/internal/service/biometric"
	"github.com/hibiken/asynq"
)

// SetupLogger installs a JSON slog handler at the configured level as the default logger.
func SetupLogger(cfg config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With(
		slog.String("app", "bio-attendance"),
		slog.String("env", cfg.Env),
	)
	slog.SetDefault(logger)
	return logger
}

// ResolverConfig maps the environment onto the resolution thresholds.
func ResolverConfig(cfg config.ResolverConfig, loc *time.Location) biometricService.ResolverConfig {
	return biometricService.ResolverConfig{
		Location:             loc,
		LateThresholdMinutes: cfg.LateThresholdMinutes,
		AnomalyThreshold:     cfg.AnomalyThreshold,
		MinPairSpan:          cfg.MinPairSpan,
		AffinityMargin:       cfg.AffinityMargin,
		Bands: biometricService.ShiftBands{
			MorningFrom:   cfg.MorningFrom,
			AfternoonFrom: cfg.AfternoonFrom,
			EveningFrom:   cfg.EveningFrom,
			NightFrom:     cfg.NightFrom,
		},
		Workers: cfg.Workers,
	}
}

// NewFileStorage opens the configured storage backend.
func NewFileStorage(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	switch cfg.Backend {
	case "local":
		s, err := storage.NewLocalStorage(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		s, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// RedisOpt returns the asynq connection options for the configured Redis.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Container holds everything a binary needs to run the import workflow.
type Container struct {
	Config    *config.Config
	Location  *time.Location
	DB        *database.DB
	Storage   storage.FileStorage
	Queue     *queue.Client
	Imports   biometric.ImportRepository
	Processor *biometricService.Processor
	Service   biometric.BiometricService
}

// New connects to the database and storage and builds the service graph. The queue client
// is only created when Redis is configured.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	fileStorage, err := NewFileStorage(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Location: loc,
		DB:       db,
		Storage:  fileStorage,
		Imports:  postgresql.NewImportRepository(db),
	}

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	c.Processor = biometricService.NewProcessor(
		postgresql.NewEmployeeRepository(db),
		postgresql.NewScheduleRepository(db),
		postgresql.NewSiteRepository(db),
		biometricService.NewAttendanceWriter(attendanceRepo),
		ResolverConfig(cfg.Resolver, loc),
	)

	// A nil *queue.Client must not reach the service as a non-nil interface.
	var importQueue biometricService.ImportQueue
	if cfg.Redis.Enabled() {
		c.Queue = queue.NewClient(RedisOpt(cfg.Redis), cfg.Redis.MaxRetry)
		importQueue = c.Queue
	}

	c.Service = biometricService.NewBiometricService(c.Imports, attendanceRepo, c.Processor, fileStorage, importQueue, loc, cfg.Resolver.StaleImportAfter)
	return c, nil
}

// Close releases the queue client and the database pool.
func (c *Container) Close() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			slog.Error("Failed to close queue client", "error", err)
		}
	}
	c.DB.Close()
}
