package linebuf

import (
	"bytes"
	"fmt"

	"ringlog/internal/ringbuf"
)

const (
	// Terminator ends every record.
	Terminator = '\n'
	// DefaultLimit caps a single pending record.
	DefaultLimit = 1 << 20

	minGrow = 64
)

// Accumulator is a growable byte buffer that yields one record per terminator.
type Accumulator struct {
	buf   []byte
	limit int
}

// New returns an empty accumulator. A non-positive limit selects DefaultLimit.
func New(limit int) *Accumulator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Accumulator{limit: limit}
}

// Feed appends p. When p ends with the terminator, the accumulated record is
// returned and the accumulator resets to empty; otherwise rec is nil and the
// input stays pending. A terminator followed by more bytes in the same call is
// rejected with ringbuf.ErrTrailingData, and growth past the limit is rejected
// with ringbuf.ErrAllocation; both leave the accumulator unchanged.
func (a *Accumulator) Feed(p []byte) (rec []byte, err error) {
	if len(p) == 0 {
		return nil, nil
	}
	idx := bytes.IndexByte(p, Terminator)
	if idx >= 0 && idx != len(p)-1 {
		return nil, fmt.Errorf("terminator at %d of %d bytes: %w", idx, len(p), ringbuf.ErrTrailingData)
	}
	if err := a.grow(len(p)); err != nil {
		return nil, err
	}
	a.buf = append(a.buf, p...)
	if idx < 0 {
		return nil, nil
	}
	rec = a.buf
	a.buf = nil
	return rec, nil
}

// Len returns the number of pending bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Pending returns a copy of the bytes of the incomplete record.
func (a *Accumulator) Pending() []byte {
	return bytes.Clone(a.buf)
}

// Reset discards any partial record.
func (a *Accumulator) Reset() {
	a.buf = nil
}

func (a *Accumulator) grow(n int) error {
	need := len(a.buf) + n
	if need > a.limit {
		return fmt.Errorf("record of %d bytes exceeds limit %d: %w", need, a.limit, ringbuf.ErrAllocation)
	}
	if need <= cap(a.buf) {
		return nil
	}
	size := max(cap(a.buf), minGrow)
	for size < need {
		size *= 2
	}
	size = min(size, a.limit)
	grown := make([]byte, len(a.buf), size)
	copy(grown, a.buf)
	a.buf = grown
	return nil
}

// Split cuts p after every terminator so each segment can be fed on its own.
// The last segment is unterminated when p does not end with a terminator.
func Split(p []byte) [][]byte {
	var segments [][]byte
	for len(p) > 0 {
		idx := bytes.IndexByte(p, Terminator)
		if idx < 0 {
			segments = append(segments, p)
			break
		}
		segments = append(segments, p[:idx+1])
		p = p[idx+1:]
	}
	return segments
}
