//go:build !linux

package clock

import (
	"context"
	"errors"
)

// ErrUnsynchronized is returned when the clock is not known to be in sync.
var ErrUnsynchronized = errors.New("clock: kernel clock not synchronized")

// Kernel cannot read clock status on this platform.
type Kernel struct{}

// Sync always succeeds; the host is trusted to keep its clock.
func (Kernel) Sync(ctx context.Context) error {
	return ctx.Err()
}
