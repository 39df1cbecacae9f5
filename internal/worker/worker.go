// Package worker provides the background maintenance tasks the cache
// depends on: periodic expiry sweeps and snapshot persistence.
package worker

import "context"

// Worker is a long-running background task.
type Worker interface {
	// Run blocks until ctx is cancelled or an unrecoverable error occurs.
	Run(ctx context.Context) error
}
