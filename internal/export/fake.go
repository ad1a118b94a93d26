package export

import (
	"context"
	"sync"

	"github.com/sweeney/heatmon/internal/status"
)

// FakeExporter records exported snapshots for test assertions.
// Safe for concurrent use, since Async calls it from its own goroutine.
type FakeExporter struct {
	mu        sync.Mutex
	snapshots []status.Snapshot
	closed    bool

	// Err, if set, is returned by Export.
	Err error

	// Block, if set, is received from before each Export returns.
	Block chan struct{}
}

// NewFakeExporter creates a FakeExporter.
func NewFakeExporter() *FakeExporter {
	return &FakeExporter{}
}

// Export records snap.
func (f *FakeExporter) Export(ctx context.Context, snap status.Snapshot) error {
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.snapshots = append(f.snapshots, snap)
	return nil
}

// Snapshots returns a copy of the recorded snapshots.
func (f *FakeExporter) Snapshots() []status.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]status.Snapshot, len(f.snapshots))
	copy(out, f.snapshots)
	return out
}

// Closed reports whether Close was called.
func (f *FakeExporter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the exporter closed.
func (f *FakeExporter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
