package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ringlog/internal/archive"
	"ringlog/internal/config"
	"ringlog/internal/devwatch"
	"ringlog/internal/logdev"
	"ringlog/internal/logging"
	"ringlog/internal/server"
	"ringlog/internal/sink"
	"ringlog/internal/stamper"
)

// shutdownTimeout bounds how long Stop waits for open connections.
const shutdownTimeout = 10 * time.Second

// ErrNotRunning reports a request that needs a started daemon.
var ErrNotRunning = errors.New("daemon not running")

// Daemon owns every runtime component and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	logPath string

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	sink      sink.Sink
	journal   *archive.Journal
	server    *server.Server
	stamper   *stamper.Stamper
	watcher   *devwatch.Watcher
	startedAt time.Time
	cancel    context.CancelFunc

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	StartedAt       time.Time
	LockFilePath    string
	LogPath         string
	Listen          string
	SinkKind        string
	SinkPath        string
	DeviceAvailable *bool
	Capacity        int
	Records         int
	TotalBytes      int64
	Server          server.Stats
	ArchiveEnabled  bool
	ArchivePath     string
	ArchiveCount    int64
	TimestampEvery  time.Duration
}

// New constructs a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  logPath,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the daemon lock and brings up the sink, journal, line
// server, stamper and device watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ringlog daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.startComponents(runCtx); err != nil {
		cancel()
		d.stopComponents()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)

	d.logger.Info("ringlog daemon started",
		logging.String("lock", d.lockPath),
		logging.String("listen", d.server.Addr().String()),
		logging.String(logging.FieldSink, d.sink.Name()),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	var recorder server.Recorder
	if d.cfg.Archive.Enabled {
		journal, err := archive.Open(ctx, d.cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		d.journal = journal
		recorder = journal
	}

	s, err := sink.New(d.cfg, d.logger)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}
	d.sink = s

	if chardev, ok := s.(*sink.CharDevice); ok && d.cfg.Device.Watch {
		d.watcher = devwatch.New(chardev.Path(), chardev, d.logger)
		if err := d.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start device watcher: %w", err)
		}
	}

	d.server = server.New(d.cfg, s, recorder, d.logger)
	if err := d.server.Start(ctx); err != nil {
		return fmt.Errorf("start line server: %w", err)
	}

	if d.stampsEnabled() {
		var opts []stamper.Option
		if d.journal != nil {
			opts = append(opts, stamper.WithRecorder(d.journal))
		}
		interval := time.Duration(d.cfg.Timestamp.IntervalSeconds) * time.Second
		d.stamper = stamper.New(s, interval, d.logger, opts...)
		if err := d.stamper.Start(ctx); err != nil {
			return fmt.Errorf("start stamper: %w", err)
		}
	}
	return nil
}

// Stop shuts the components down in order and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.stopComponents()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("ringlog daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

func (d *Daemon) stopComponents() {
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.server.Stop(ctx); err != nil {
			logging.WarnWithContext(d.logger, "line server did not stop cleanly", "server_stop_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some connections were abandoned"),
			)
		}
		cancel()
		d.server = nil
	}
	if d.stamper != nil {
		d.stamper.Stop()
		d.stamper = nil
	}
	if d.watcher != nil {
		d.watcher.Stop()
		d.watcher = nil
	}
	if d.sink != nil {
		if err := d.sink.Close(); err != nil {
			logging.WarnWithContext(d.logger, "sink close failed", "sink_close_failed",
				logging.Error(err),
				logging.String(logging.FieldSink, d.sink.Name()),
			)
		}
		d.sink = nil
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			logging.WarnWithContext(d.logger, "archive close failed", "archive_close_failed", logging.Error(err))
		}
		d.journal = nil
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		LogPath:        d.logPath,
		SinkKind:       d.cfg.Sink.Kind,
		Capacity:       d.cfg.Buffer.Capacity,
		ArchiveEnabled: d.cfg.Archive.Enabled,
		ArchivePath:    d.cfg.Archive.Path,
	}
	if d.stampsEnabled() {
		status.TimestampEvery = time.Duration(d.cfg.Timestamp.IntervalSeconds) * time.Second
	}
	switch d.cfg.Sink.Kind {
	case config.SinkFile:
		status.SinkPath = d.cfg.Sink.FilePath
	case config.SinkChardev:
		status.SinkPath = d.cfg.Sink.DevicePath
	}
	if !status.Running {
		return status
	}

	status.StartedAt = d.startedAt
	if addr := d.server.Addr(); addr != nil {
		status.Listen = addr.String()
	}
	status.Server = d.server.Stats()
	if chardev, ok := d.sink.(*sink.CharDevice); ok {
		available := chardev.Available()
		status.DeviceAvailable = &available
	}
	if records, err := sink.Records(ctx, d.sink); err == nil {
		status.Records = len(records)
		for _, r := range records {
			status.TotalBytes += int64(len(r.Data))
		}
	}
	if d.journal != nil {
		if count, err := d.journal.Count(ctx); err == nil {
			status.ArchiveCount = count
		}
	}
	return status
}

// Records returns the stored records in logical order.
func (d *Daemon) Records(ctx context.Context) ([]logdev.Record, error) {
	s, err := d.currentSink()
	if err != nil {
		return nil, err
	}
	return sink.Records(ctx, s)
}

// ReadRecord returns up to limit bytes of the log starting offset bytes into
// the record at the given logical index. A non-positive limit reads to the end.
func (d *Daemon) ReadRecord(ctx context.Context, index, offset uint32, limit int) ([]byte, error) {
	s, err := d.currentSink()
	if err != nil {
		return nil, err
	}
	seeker, ok := s.(sink.Seeker)
	if !ok {
		return nil, fmt.Errorf("sink %s does not support seeking", s.Name())
	}
	var buf bytes.Buffer
	if _, err := seeker.ReadRecord(ctx, index, offset, &buf); err != nil {
		d.logger.Debug("seek read failed",
			logging.Int(logging.FieldRecordIndex, int(index)),
			logging.Int64("offset", int64(offset)),
			logging.Error(err),
		)
		return nil, err
	}
	data := buf.Bytes()
	if limit > 0 && len(data) > limit {
		data = data[:limit]
	}
	return data, nil
}

// History returns up to limit journaled records, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]archive.Entry, error) {
	d.mu.Lock()
	journal := d.journal
	d.mu.Unlock()
	if journal == nil {
		return nil, errors.New("archive disabled")
	}
	return journal.Recent(ctx, limit)
}

// stampsEnabled reports whether timestamp records are written. The character
// device is shared with other writers, so it never receives them.
func (d *Daemon) stampsEnabled() bool {
	return d.cfg.Timestamp.Enabled && d.cfg.Sink.Kind != config.SinkChardev
}

func (d *Daemon) currentSink() (sink.Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() || d.sink == nil {
		return nil, ErrNotRunning
	}
	return d.sink, nil
}
