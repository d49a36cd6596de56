// Package sink stores committed records for the line server.
//
// Three implementations share the Sink interface: Memory keeps records in an
// in-process ring, File appends to a plain data file, and CharDevice forwards
// to the aesdchar kernel driver.
package sink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ringlog/internal/config"
	"ringlog/internal/logdev"
	"ringlog/internal/logging"
)

// ErrUnavailable reports that the backing device node is currently absent.
var ErrUnavailable = errors.New("sink unavailable")

// Sink accepts complete records and streams the stored log back.
type Sink interface {
	// Append stores one record. rec includes its terminator.
	Append(ctx context.Context, rec []byte) error
	// Dump writes the whole stored log to w in logical order.
	Dump(ctx context.Context, w io.Writer) (int64, error)
	Close() error
	Name() string
}

// Seeker is implemented by sinks that can start a read inside a given record.
type Seeker interface {
	ReadRecord(ctx context.Context, record, offset uint32, w io.Writer) (int64, error)
}

// Snapshotter is implemented by sinks that can list records without parsing
// a dump.
type Snapshotter interface {
	Records(ctx context.Context) ([]logdev.Record, error)
}

// New builds the sink selected by cfg.Sink.Kind.
func New(cfg *config.Config, logger *slog.Logger) (Sink, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger = logging.NewComponentLogger(logger, "sink")
	switch cfg.Sink.Kind {
	case config.SinkMemory, "":
		return NewMemory(logdev.Options{
			Capacity:       cfg.Buffer.Capacity,
			MaxRecordBytes: cfg.Buffer.MaxRecordBytes,
		})
	case config.SinkFile:
		return NewFile(cfg.Sink.FilePath, logger), nil
	case config.SinkChardev:
		return NewCharDevice(cfg.Sink.DevicePath, logger), nil
	default:
		return nil, fmt.Errorf("unsupported sink kind %q", cfg.Sink.Kind)
	}
}

// Records lists the stored records of s. Sinks without a native listing are
// dumped and split at terminators; a trailing partial line is dropped.
func Records(ctx context.Context, s Sink) ([]logdev.Record, error) {
	if snap, ok := s.(Snapshotter); ok {
		return snap.Records(ctx)
	}
	var buf bytes.Buffer
	if _, err := s.Dump(ctx, &buf); err != nil {
		return nil, err
	}
	var out []logdev.Record
	var offset int64
	reader := bufio.NewReader(&buf)
	for index := 0; ; index++ {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return out, nil
		}
		out = append(out, logdev.Record{Index: index, Offset: offset, Data: line})
		offset += int64(len(line))
	}
}
