package sink

import (
	"context"
	"fmt"
	"io"
	"time"

	"ringlog/internal/logdev"
	"ringlog/internal/ringbuf"
)

// closeDrainTimeout bounds how long Close waits for open device handles.
const closeDrainTimeout = 5 * time.Second

// Memory stores records in an in-process logdev.Device.
type Memory struct {
	dev *logdev.Device
}

// NewMemory creates a memory sink with an empty ring.
func NewMemory(opts logdev.Options) (*Memory, error) {
	dev, err := logdev.New(opts)
	if err != nil {
		return nil, err
	}
	return &Memory{dev: dev}, nil
}

func (m *Memory) Name() string { return "memory" }

// Device exposes the underlying device.
func (m *Memory) Device() *logdev.Device { return m.dev }

func (m *Memory) Append(ctx context.Context, rec []byte) error {
	_, err := m.dev.Append(ctx, rec)
	return err
}

// Dump writes a snapshot of the log taken under the device lock. Commits
// made while w is being written show up in the next dump.
func (m *Memory) Dump(ctx context.Context, w io.Writer) (int64, error) {
	data, err := m.dev.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("%w: %w", ringbuf.ErrIO, err)
	}
	return int64(n), nil
}

// ReadRecord streams the log starting at offset bytes into the record at the
// given logical index.
func (m *Memory) ReadRecord(ctx context.Context, record, offset uint32, w io.Writer) (int64, error) {
	f, err := m.dev.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if err := f.SeekTo(record, offset); err != nil {
		return 0, err
	}
	return io.Copy(w, f)
}

func (m *Memory) Records(ctx context.Context) ([]logdev.Record, error) {
	return m.dev.Records(ctx)
}

// Close tears the ring down.
func (m *Memory) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeDrainTimeout)
	defer cancel()
	return m.dev.Close(ctx)
}
