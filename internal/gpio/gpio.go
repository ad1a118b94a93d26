// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads zone sense lines.
type Reader interface {
	// Read returns the logical state of a line: true when the zone relay
	// calls for heat. The raw values are inverted: raw active = logical OFF.
	Read(line int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device the sense lines are requested on.
const DefaultChip = "gpiochip0"
