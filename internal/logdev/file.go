package logdev

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ringlog/internal/linebuf"
	"ringlog/internal/ringbuf"
)

// ErrFileClosed reports use of a File after Close.
var ErrFileClosed = errors.New("file already closed")

// File is one open handle on a Device with its own read position.
type File struct {
	dev    *Device
	ctx    context.Context
	pos    int64
	closed bool
}

// Read copies bytes from the record holding the current position, never
// crossing into the next record in a single call. It returns io.EOF once the
// position reaches the end of the log.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	err := f.do(func(store *ringbuf.Store) error {
		entry, intra, err := store.FindByOffset(f.pos)
		if errors.Is(err, ringbuf.ErrNotFound) {
			return io.EOF
		}
		if err != nil {
			return err
		}
		n = copy(p, entry.Data[intra:])
		f.pos += int64(n)
		return nil
	})
	return n, err
}

// Write feeds p into the device's global accumulator and commits every record
// completed by a terminator. The handle position is not used or changed.
func (f *File) Write(p []byte) (int, error) {
	var accepted int
	err := f.do(func(store *ringbuf.Store) error {
		for _, segment := range linebuf.Split(p) {
			rec, err := f.dev.acc.Feed(segment)
			if err != nil {
				return err
			}
			accepted += len(segment)
			if rec != nil {
				store.Add(rec)
			}
		}
		return nil
	})
	return accepted, err
}

// Seek moves the position relative to the start, the current position or the
// end of the log. Targets outside [0, size] fail with ringbuf.ErrOutOfRange
// and leave the position unchanged.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	err := f.do(func(store *ringbuf.Store) error {
		size := store.TotalSize()
		var target int64
		switch whence {
		case io.SeekStart:
			target = offset
		case io.SeekCurrent:
			target = f.pos + offset
		case io.SeekEnd:
			target = size + offset
		default:
			return fmt.Errorf("seek whence %d: %w", whence, ringbuf.ErrInvalidOffset)
		}
		if target < 0 || target > size {
			return fmt.Errorf("seek to %d with log size %d: %w", target, size, ringbuf.ErrOutOfRange)
		}
		f.pos = target
		return nil
	})
	return f.pos, err
}

// SeekTo positions the handle at byte offset within the record at the logical
// index (0 is the oldest stored record). On failure the position is unchanged.
func (f *File) SeekTo(record, offset uint32) error {
	return f.do(func(store *ringbuf.Store) error {
		pos, err := store.Locate(int(record), int64(offset))
		if err != nil {
			return err
		}
		f.pos = pos
		return nil
	})
}

// Position returns the current read position.
func (f *File) Position() int64 {
	return f.pos
}

// Close releases the handle.
func (f *File) Close() error {
	if f.closed {
		return ErrFileClosed
	}
	f.closed = true
	f.dev.release()
	return nil
}

func (f *File) do(fn func(*ringbuf.Store) error) error {
	if f.closed {
		return ErrFileClosed
	}
	if err := f.dev.lock.Enter(f.ctx); err != nil {
		return err
	}
	defer f.dev.lock.Leave()
	if f.dev.isClosed() {
		return ErrClosed
	}
	return fn(f.dev.store)
}
