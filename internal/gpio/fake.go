package gpio

import "fmt"

// FakeReader is a test double that returns scripted line values.
type FakeReader struct {
	// Samples holds the scripted logical values per line. Each Read of a
	// line consumes its next value; the last one repeats once exhausted.
	Samples map[int][]bool

	// ReadErrors, if set for a line, is returned by Read for that line.
	ReadErrors map[int]error

	// Reads counts Read calls per line.
	Reads map[int]int

	// Closed tracks if Close was called.
	Closed bool

	index map[int]int
}

// NewFakeReader creates a FakeReader with the given per-line samples.
func NewFakeReader(samples map[int][]bool) *FakeReader {
	if samples == nil {
		samples = make(map[int][]bool)
	}
	return &FakeReader{
		Samples:    samples,
		ReadErrors: make(map[int]error),
		Reads:      make(map[int]int),
		index:      make(map[int]int),
	}
}

// Read returns the next scripted value for line.
func (f *FakeReader) Read(line int) (bool, error) {
	f.Reads[line]++
	if err := f.ReadErrors[line]; err != nil {
		return false, err
	}

	samples := f.Samples[line]
	if len(samples) == 0 {
		return false, fmt.Errorf("no samples configured for line %d", line)
	}

	i := f.index[line]
	if i < len(samples)-1 {
		f.index[line] = i + 1
	}
	return samples[i], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds every line to its first sample.
func (f *FakeReader) Reset() {
	f.index = make(map[int]int)
	f.Reads = make(map[int]int)
	f.Closed = false
}

// Repeat returns n copies of v.
func Repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}
