package logic

import "math"

// Counter counts polls. It saturates at math.MaxInt32 rather than wrapping,
// so pollers never see a negative value.
type Counter int32

// Inc returns c+1, or c unchanged once the maximum is reached.
func (c Counter) Inc() Counter {
	if c == math.MaxInt32 {
		return c
	}
	return c + 1
}
