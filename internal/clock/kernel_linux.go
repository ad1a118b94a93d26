//go:build linux

package clock

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Values from <sys/timex.h>.
const (
	timeError = 5
	staUnsync = 0x0040
)

// ErrUnsynchronized is returned when the kernel reports the clock is not
// disciplined by NTP.
var ErrUnsynchronized = errors.New("clock: kernel clock not synchronized")

// Kernel reads the kernel's NTP discipline status.
type Kernel struct{}

// Sync reports ErrUnsynchronized when the kernel clock is not being kept in
// sync.
func (Kernel) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var tx unix.Timex
	state, err := unix.Adjtimex(&tx)
	if err != nil {
		return fmt.Errorf("adjtimex: %w", err)
	}
	if state == timeError || tx.Status&staUnsync != 0 {
		return ErrUnsynchronized
	}
	return nil
}
