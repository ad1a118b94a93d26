package export

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/heatmon/internal/status"
)

// DefaultExportTimeout bounds a single background export.
const DefaultExportTimeout = 5 * time.Second

// Async runs an Exporter on its own goroutine. Export only queues the
// snapshot; if a snapshot is already waiting it is replaced, so a slow
// backend sees the latest state and the caller never blocks.
type Async struct {
	inner   Exporter
	log     *logrus.Entry
	timeout time.Duration

	mu      sync.Mutex
	pending *status.Snapshot
	dropped uint64
	closed  bool

	wake chan struct{}
	done chan struct{}
	stop context.CancelFunc
}

// NewAsync starts the background goroutine. It runs until Close.
func NewAsync(inner Exporter, log *logrus.Entry) *Async {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		inner:   inner,
		log:     log.WithField("component", "export"),
		timeout: DefaultExportTimeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stop:    cancel,
	}
	go a.run(ctx)
	return a
}

// Export queues snap. It never blocks and never returns an error; export
// failures are logged by the background goroutine.
func (a *Async) Export(_ context.Context, snap status.Snapshot) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	if a.pending != nil {
		a.dropped++
	}
	a.pending = &snap
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dropped returns how many queued snapshots were replaced before export.
func (a *Async) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

func (a *Async) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return
		case <-a.wake:
			a.flush()
		}
	}
}

func (a *Async) flush() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.inner.Export(ctx, *snap); err != nil {
		a.log.WithError(err).Warn("export failed")
	}
}

// Close exports any queued snapshot, stops the goroutine and closes the
// wrapped exporter.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.stop()
	<-a.done
	return a.inner.Close()
}
