package site

import "context"

// SiteRepository is the read-only site registry.
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (Site, error)
	// ResolveByDeviceID returns the site a biometric device is installed at.
	ResolveByDeviceID(ctx context.Context, deviceID string) (Site, error)
}
