package app

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverConfig(t *testing.T) {
	cfg := config.ResolverConfig{
		LateThresholdMinutes: 10,
		AnomalyThreshold:     4 * time.Hour,
		MinPairSpan:          30 * time.Minute,
		AffinityMargin:       15 * time.Minute,
		MorningFrom:          4,
		AfternoonFrom:        11,
		EveningFrom:          16,
		NightFrom:            20,
		Workers:              3,
	}

	got := ResolverConfig(cfg, time.UTC)
	assert.Equal(t, time.UTC, got.Location)
	assert.Equal(t, 10, got.LateThresholdMinutes)
	assert.Equal(t, 4*time.Hour, got.AnomalyThreshold)
	assert.Equal(t, 30*time.Minute, got.MinPairSpan)
	assert.Equal(t, 15*time.Minute, got.AffinityMargin)
	assert.Equal(t, 20, got.Bands.NightFrom)
	assert.Equal(t, 3, got.Workers)
}

func TestNewFileStorage(t *testing.T) {
	s, err := NewFileStorage(context.Background(), config.StorageConfig{Backend: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = NewFileStorage(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.ErrorContains(t, err, "unsupported storage backend")
}

func TestRedisOpt(t *testing.T) {
	opt := RedisOpt(config.RedisConfig{Addr: "localhost:6379", Password: "pw", DB: 2})
	assert.Equal(t, "localhost:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
