package site

import "errors"

var (
	ErrSiteNotFound   = errors.New("site not found")
	ErrDeviceNotFound = errors.New("biometric device is not registered to any site")
)
