// Package wire encodes zone events into the compact JSON form pollers read:
// {"id":I,"t":T,"on":B} objects, and arrays of them cut to a fixed size.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/sweeney/heatmon/internal/logic"
)

// DefaultBufferSize is the size of the exposed history buffer, terminator
// included. Cloud string variables top out at 622 bytes.
const DefaultBufferSize = 620

// minBufferSize fits "[]" and the terminator.
const minBufferSize = 3

// ErrBufferTooSmall is returned when a buffer cannot even hold an empty array.
var ErrBufferTooSmall = errors.New("wire: buffer too small")

// Record is the JSON shape of a single event.
type Record struct {
	ID int   `json:"id"`
	T  int64 `json:"t"`
	On int   `json:"on"`
}

// AppendEvent appends the JSON object for ev to dst.
func AppendEvent(dst []byte, ev logic.ZoneEvent) []byte {
	on := 0
	if ev.On {
		on = 1
	}
	dst = append(dst, `{"id":`...)
	dst = strconv.AppendInt(dst, int64(ev.ZoneID), 10)
	dst = append(dst, `,"t":`...)
	dst = strconv.AppendInt(dst, ev.Time, 10)
	dst = append(dst, `,"on":`...)
	dst = strconv.AppendInt(dst, int64(on), 10)
	return append(dst, '}')
}

// EncodeEvent returns the JSON object for a single event.
func EncodeEvent(ev logic.ZoneEvent) []byte {
	return AppendEvent(make([]byte, 0, 48), ev)
}

// Result describes the outcome of EncodeAll.
type Result struct {
	// N is the number of bytes written, excluding the terminator.
	N int
	// Events is the number of events included in the array.
	Events int
	// Truncated is set when events were left out for lack of space.
	Truncated bool
}

// EncodeAll writes events as a JSON array into buf, followed by a NUL
// terminator. Events are written in sequence order; when the next object
// (with its separating comma) would not leave room for the closing bracket
// and terminator, it and everything after it are left out. The output is
// always a complete array, "[]" at worst.
//
// A buffer shorter than 3 bytes is left untouched and ErrBufferTooSmall is
// returned.
func EncodeAll(events iter.Seq[logic.ZoneEvent], buf []byte) (Result, error) {
	if len(buf) < minBufferSize {
		return Result{}, ErrBufferTooSmall
	}

	w := NewBoundedWriter(buf)
	w.Reserve(1) // closing bracket
	w.AppendByte('[')

	var res Result
	var scratch [64]byte
	for ev := range events {
		obj := scratch[:0]
		if res.Events > 0 {
			obj = append(obj, ',')
		}
		obj = AppendEvent(obj, ev)
		if !w.Append(obj) {
			res.Truncated = true
			break
		}
		res.Events++
	}

	w.Reserve(0)
	w.AppendByte(']')
	w.Terminate()

	res.N = w.Len()
	return res, nil
}

// Decode parses an encoded event array.
func Decode(data []byte) ([]logic.ZoneEvent, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	out := make([]logic.ZoneEvent, len(recs))
	for i, r := range recs {
		out[i] = logic.ZoneEvent{ZoneID: r.ID, Time: r.T, On: r.On != 0}
	}
	return out, nil
}
