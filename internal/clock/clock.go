// Package clock checks that the wall clock used for event timestamps is
// being kept in sync. heatmon does not set the clock itself; on Linux the
// kernel is disciplined by the system NTP client and this package reads its
// status.
package clock

import "context"

// Syncer verifies or refreshes the wall clock.
type Syncer interface {
	Sync(ctx context.Context) error
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(ctx context.Context) error

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context) error {
	return f(ctx)
}
