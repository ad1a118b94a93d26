package wire

import (
	"iter"

	"github.com/sweeney/heatmon/internal/logic"
)

// History is the exposed, size-limited JSON rendering of an event log.
// It is regenerated in full on every update; String always returns either
// the previous or the new rendering, never a partial one.
// Not safe for concurrent use — caller must synchronize.
type History struct {
	size    int
	encoded string
	last    Result
}

// NewHistory creates a history rendered into size-byte buffers.
func NewHistory(size int) *History {
	return &History{size: size, encoded: "[]"}
}

// Update re-encodes events and swaps in the result. On error the previous
// rendering is kept.
func (h *History) Update(events iter.Seq[logic.ZoneEvent]) (Result, error) {
	buf := make([]byte, h.size)
	res, err := EncodeAll(events, buf)
	if err != nil {
		return res, err
	}
	h.encoded = string(buf[:res.N])
	h.last = res
	return res, nil
}

// String returns the current rendering.
func (h *History) String() string {
	return h.encoded
}

// Last returns the result of the last successful update.
func (h *History) Last() Result {
	return h.last
}

// Size returns the buffer size, terminator included.
func (h *History) Size() int {
	return h.size
}
