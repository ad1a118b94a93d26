package wire

// BoundedWriter appends into a caller-owned, fixed-size buffer. The last byte
// of the buffer is kept for a NUL terminator, and callers may reserve further
// bytes at the end for a closing sequence. An append either fits entirely or
// writes nothing.
type BoundedWriter struct {
	buf     []byte
	n       int
	reserve int
}

// NewBoundedWriter returns a writer over buf starting at offset 0.
func NewBoundedWriter(buf []byte) *BoundedWriter {
	return &BoundedWriter{buf: buf}
}

// Reserve holds back n bytes that ordinary appends may not use.
// Reserve(0) releases the reservation.
func (w *BoundedWriter) Reserve(n int) {
	if n < 0 {
		n = 0
	}
	w.reserve = n
}

// Fits reports whether k more bytes can be appended.
func (w *BoundedWriter) Fits(k int) bool {
	return w.n+k+w.reserve+1 <= len(w.buf)
}

// Append writes p if it fits and reports whether it did.
func (w *BoundedWriter) Append(p []byte) bool {
	if !w.Fits(len(p)) {
		return false
	}
	w.n += copy(w.buf[w.n:], p)
	return true
}

// AppendByte writes c if it fits and reports whether it did.
func (w *BoundedWriter) AppendByte(c byte) bool {
	if !w.Fits(1) {
		return false
	}
	w.buf[w.n] = c
	w.n++
	return true
}

// Terminate writes the NUL terminator after the written bytes.
func (w *BoundedWriter) Terminate() {
	if w.n < len(w.buf) {
		w.buf[w.n] = 0
	}
}

// Len returns the number of bytes written, excluding the terminator.
func (w *BoundedWriter) Len() int {
	return w.n
}

// Bytes returns the written bytes, excluding the terminator.
func (w *BoundedWriter) Bytes() []byte {
	return w.buf[:w.n]
}
