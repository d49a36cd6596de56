package logdev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"ringlog/internal/critsec"
	"ringlog/internal/linebuf"
	"ringlog/internal/ringbuf"
)

// ErrClosed reports an operation on a device that has been torn down.
var ErrClosed = errors.New("device closed")

// Options configures a Device.
type Options struct {
	Capacity       int
	MaxRecordBytes int
	Locker         critsec.Locker
}

// Device is the shared state behind every open File.
type Device struct {
	lock  critsec.Locker
	store *ringbuf.Store
	acc   *linebuf.Accumulator

	mu     sync.Mutex
	closed bool
	open   int
	idle   chan struct{}
}

// Stats summarizes the store contents.
type Stats struct {
	Records      int
	Capacity     int
	TotalBytes   int64
	PendingBytes int
}

// Record is a copy of one stored record with its position in the log.
type Record struct {
	Index  int
	Offset int64
	Data   []byte
}

// New creates a device with an empty store.
func New(opts Options) (*Device, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = ringbuf.DefaultCapacity
	}
	store, err := ringbuf.New(capacity)
	if err != nil {
		return nil, err
	}
	lock := opts.Locker
	if lock == nil {
		lock = critsec.New()
	}
	store.Init()
	return &Device{
		lock:  lock,
		store: store,
		acc:   linebuf.New(opts.MaxRecordBytes),
	}, nil
}

// Open returns a new handle positioned at the start of the log. Lock waits
// performed through the handle are interrupted when ctx ends.
func (d *Device) Open(ctx context.Context) (*File, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	d.open++
	return &File{dev: d, ctx: ctx}, nil
}

// Close stops new handles from opening, waits for open handles to be closed
// until ctx ends, and then tears the store down exactly once.
func (d *Device) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	var wait chan struct{}
	if d.open > 0 {
		d.idle = make(chan struct{})
		wait = d.idle
	}
	d.mu.Unlock()

	var drainErr error
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			drainErr = fmt.Errorf("wait for open handles: %w", ctx.Err())
		}
	}

	if err := d.lock.Enter(context.Background()); err != nil {
		return errors.Join(drainErr, err)
	}
	d.store.Teardown()
	d.acc.Reset()
	d.lock.Leave()
	return drainErr
}

// Append writes data through a short-lived handle. It is the write path used
// by front ends that do not keep a handle open.
func (d *Device) Append(ctx context.Context, data []byte) (int, error) {
	f, err := d.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(data)
}

// Stats reports the current store occupancy.
func (d *Device) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := d.locked(ctx, func() {
		stats = Stats{
			Records:      d.store.Len(),
			Capacity:     d.store.Cap(),
			TotalBytes:   d.store.TotalSize(),
			PendingBytes: d.acc.Len(),
		}
	})
	return stats, err
}

// Records returns copies of every stored record in logical order.
func (d *Device) Records(ctx context.Context) ([]Record, error) {
	var out []Record
	err := d.locked(ctx, func() {
		out = make([]Record, 0, d.store.Len())
		d.store.Each(func(index int, offset int64, entry ringbuf.Entry) bool {
			out = append(out, Record{Index: index, Offset: offset, Data: bytes.Clone(entry.Data)})
			return true
		})
	})
	return out, err
}

// Snapshot returns the concatenated log contents, oldest first, copied in a
// single critical section.
func (d *Device) Snapshot(ctx context.Context) ([]byte, error) {
	var out []byte
	err := d.locked(ctx, func() {
		out = make([]byte, 0, d.store.TotalSize())
		d.store.Each(func(_ int, _ int64, entry ringbuf.Entry) bool {
			out = append(out, entry.Data...)
			return true
		})
	})
	return out, err
}

func (d *Device) locked(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := d.lock.Enter(ctx); err != nil {
		return err
	}
	defer d.lock.Leave()
	if d.isClosed() {
		return ErrClosed
	}
	fn()
	return nil
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open--
	if d.open == 0 && d.idle != nil {
		close(d.idle)
		d.idle = nil
	}
}
