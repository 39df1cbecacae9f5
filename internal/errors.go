package nexus

import "errors"

// Sentinel errors for the cache domain.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrRateLimited      = errors.New("rate limited")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrProviderUnknown  = errors.New("unknown provider")
	ErrProviderDown     = errors.New("provider unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
)
