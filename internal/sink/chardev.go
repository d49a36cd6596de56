package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"ringlog/internal/logdev"
	"ringlog/internal/logging"
	"ringlog/internal/ringbuf"
)

// CharDevice forwards records to a character device node backed by the
// aesdchar driver. Each record goes through its own open; dumps reopen the
// node and read it to the end.
type CharDevice struct {
	path      string
	logger    *slog.Logger
	available atomic.Bool
}

// NewCharDevice creates a sink for the device node at path. The node is
// assumed present until SetAvailable says otherwise.
func NewCharDevice(path string, logger *slog.Logger) *CharDevice {
	c := &CharDevice{path: path, logger: logger}
	c.available.Store(true)
	return c
}

func (c *CharDevice) Name() string { return "chardev" }

// Path returns the device node location.
func (c *CharDevice) Path() string { return c.path }

// SetAvailable marks the device node as present or absent.
func (c *CharDevice) SetAvailable(ok bool) {
	if c.available.Swap(ok) == ok {
		return
	}
	if c.logger != nil {
		c.logger.Info("device availability changed",
			logging.String("device", c.path),
			logging.Bool("available", ok),
			logging.String(logging.FieldEventType, "device_availability"),
		)
	}
}

// Available reports the last state passed to SetAvailable.
func (c *CharDevice) Available() bool {
	return c.available.Load()
}

func (c *CharDevice) Append(ctx context.Context, rec []byte) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	dev, err := os.OpenFile(c.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ringbuf.ErrIO, c.path, err)
	}
	defer dev.Close()
	if _, err := dev.Write(rec); err != nil {
		return fmt.Errorf("%w: write %s: %w", ringbuf.ErrIO, c.path, err)
	}
	return nil
}

func (c *CharDevice) Dump(ctx context.Context, w io.Writer) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	dev, err := os.Open(c.path)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ringbuf.ErrIO, c.path, err)
	}
	defer dev.Close()
	return copyDevice(w, dev, c.path)
}

// ReadRecord issues the seek-to ioctl on a fresh descriptor and streams the
// device from the resulting position.
func (c *CharDevice) ReadRecord(ctx context.Context, record, offset uint32, w io.Writer) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	dev, err := os.OpenFile(c.path, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ringbuf.ErrIO, c.path, err)
	}
	defer dev.Close()
	if err := seekTo(dev, record, offset); err != nil {
		return 0, err
	}
	return copyDevice(w, dev, c.path)
}

// Close leaves the device contents alone; the driver owns them.
func (c *CharDevice) Close() error { return nil }

func (c *CharDevice) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ringbuf.ErrInterrupted, err)
	}
	if !c.available.Load() {
		return fmt.Errorf("%s: %w", c.path, ErrUnavailable)
	}
	return nil
}

func seekTo(dev *os.File, record, offset uint32) error {
	args := logdev.SeekToArgs{WriteCmd: record, WriteCmdOffset: offset}
	raw, err := dev.SyscallConn()
	if err != nil {
		return fmt.Errorf("%w: %w", ringbuf.ErrIO, err)
	}
	var errno unix.Errno
	ctrlErr := raw.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, logdev.IocSeekTo, uintptr(unsafe.Pointer(&args)))
	})
	if ctrlErr != nil {
		return fmt.Errorf("%w: %w", ringbuf.ErrIO, ctrlErr)
	}
	if errno != 0 {
		return fmt.Errorf("seekto %d/%d: %w", record, offset, ioctlError(errno))
	}
	return nil
}

// ioctlError maps driver errno values onto the ring sentinels. The driver
// returns EINVAL for both a bad record index and a bad intra-record offset,
// so that case matches either sentinel.
func ioctlError(errno unix.Errno) error {
	switch errno {
	case unix.EINVAL:
		return fmt.Errorf("%w (or %w): %w", ringbuf.ErrOutOfRange, ringbuf.ErrInvalidOffset, errno)
	case unix.EINTR:
		return fmt.Errorf("%w: %w", ringbuf.ErrInterrupted, errno)
	default:
		return fmt.Errorf("%w: %w", ringbuf.ErrIO, errno)
	}
}

func copyDevice(w io.Writer, dev io.Reader, path string) (int64, error) {
	n, err := io.Copy(w, dev)
	if err != nil {
		return n, fmt.Errorf("%w: stream %s: %w", ringbuf.ErrIO, path, err)
	}
	return n, nil
}
