package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/site"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type siteRepository struct {
	db *database.DB
}

// GetByID implements site.SiteRepository.
func (r *siteRepository) GetByID(ctx context.Context, id string) (site.Site, error) {
	q := GetQuerier(ctx, r.db)

	var s site.Site
	err := q.QueryRow(ctx, `SELECT id, name, timezone FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return site.Site{}, site.ErrSiteNotFound
		}
		return site.Site{}, fmt.Errorf("failed to get site: %w", err)
	}
	return s, nil
}

// ResolveByDeviceID implements site.SiteRepository.
func (r *siteRepository) ResolveByDeviceID(ctx context.Context, deviceID string) (site.Site, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT s.id, s.name, s.timezone
		FROM biometric_devices d
		JOIN sites s ON s.id = d.site_id
		WHERE d.device_id = $1
	`

	var s site.Site
	err := q.QueryRow(ctx, query, deviceID).Scan(&s.ID, &s.Name, &s.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return site.Site{}, site.ErrDeviceNotFound
		}
		return site.Site{}, fmt.Errorf("failed to resolve device site: %w", err)
	}
	return s, nil
}

func NewSiteRepository(db *database.DB) site.SiteRepository {
	return &siteRepository{db: db}
}
