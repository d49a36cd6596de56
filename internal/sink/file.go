package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"ringlog/internal/critsec"
	"ringlog/internal/logging"
	"ringlog/internal/ringbuf"
)

// File appends records to a plain data file. The file is created on the
// first append and removed by Close.
type File struct {
	path   string
	lock   *critsec.Section
	logger *slog.Logger
}

// NewFile creates a file sink for path. Nothing touches the disk until the
// first append.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{path: path, lock: critsec.New(), logger: logger}
}

func (f *File) Name() string { return "file" }

// Path returns the data file location.
func (f *File) Path() string { return f.path }

func (f *File) Append(ctx context.Context, rec []byte) error {
	if err := f.lock.Enter(ctx); err != nil {
		return err
	}
	defer f.lock.Leave()

	_, statErr := os.Stat(f.path)
	created := errors.Is(statErr, fs.ErrNotExist)
	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ringbuf.ErrIO, f.path, err)
	}
	if _, err := out.Write(rec); err != nil {
		out.Close()
		return fmt.Errorf("%w: write %s: %w", ringbuf.ErrIO, f.path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ringbuf.ErrIO, f.path, err)
	}
	if created && f.logger != nil {
		f.logger.DebugContext(ctx, "backing file created",
			logging.String(logging.FieldEventType, "sink_file_created"),
			logging.String("path", f.path),
		)
	}
	return nil
}

func (f *File) Dump(ctx context.Context, w io.Writer) (int64, error) {
	if err := f.lock.Enter(ctx); err != nil {
		return 0, err
	}
	defer f.lock.Leave()

	in, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ringbuf.ErrIO, f.path, err)
	}
	defer in.Close()
	n, err := io.Copy(w, in)
	if err != nil {
		return n, fmt.Errorf("%w: stream %s: %w", ringbuf.ErrIO, f.path, err)
	}
	return n, nil
}

// Close removes the data file.
func (f *File) Close() error {
	if err := f.lock.Enter(context.Background()); err != nil {
		return err
	}
	defer f.lock.Leave()
	err := os.Remove(f.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	logging.WarnWithContext(f.logger, "data file removal failed", "sink_cleanup_failed",
		logging.String("path", f.path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "remove the file manually"),
		logging.String(logging.FieldImpact, "stale records will be served by the next run"),
	)
	return fmt.Errorf("remove %s: %w", f.path, err)
}
