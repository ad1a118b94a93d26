//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealReader requests the given line offsets on chip as inputs.
func NewRealReader(chip string, offsets []int) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	r := &RealReader{chip: c, lines: make(map[int]*gpiocdev.Line, len(offsets))}
	for _, offset := range offsets {
		// Pull-down matches Pi boot defaults, which the optocoupler
		// modules on the sense lines are wired for.
		l, err := c.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request line %d: %w", offset, err)
		}
		r.lines[offset] = l
	}
	return r, nil
}

// Read returns the logical state of a line.
// Inverts raw GPIO: raw active (1) = logical OFF, raw inactive (0) = logical ON.
func (r *RealReader) Read(line int) (bool, error) {
	l, ok := r.lines[line]
	if !ok {
		return false, fmt.Errorf("line %d not requested", line)
	}
	raw, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w", line, err)
	}
	return raw == 0, nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing so the pins are in a clean state for reboot.
func (r *RealReader) Close() error {
	var errs []error

	for offset, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", offset, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", offset, err))
		}
	}
	r.lines = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
