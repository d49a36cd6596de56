// Package stamper appends a wall-clock timestamp record to a sink on a fixed
// interval.
package stamper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ringlog/internal/logging"
)

// Layout is the time layout of a stamp record body.
const Layout = "20060102150405"

// Appender is the subset of sink.Sink the stamper writes to.
type Appender interface {
	Append(ctx context.Context, rec []byte) error
}

// Recorder journals stamp records.
type Recorder interface {
	Record(ctx context.Context, source, connID string, payload []byte) error
}

// Stamper writes "timestamp:YYYYmmddHHMMSS\n" records.
type Stamper struct {
	sink     Appender
	recorder Recorder
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Stamper.
type Option func(*Stamper)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Stamper) { s.now = now }
}

// WithRecorder journals every stamp.
func WithRecorder(r Recorder) Option {
	return func(s *Stamper) { s.recorder = r }
}

// New creates a stamper. It does nothing until Start.
func New(sink Appender, interval time.Duration, logger *slog.Logger, opts ...Option) *Stamper {
	s := &Stamper{
		sink:     sink,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "stamper"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Format renders the stamp record for t in local time.
func Format(t time.Time) []byte {
	return []byte("timestamp:" + t.Format(Layout) + "\n")
}

// Start launches the ticker loop.
func (s *Stamper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("stamper interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("stamper already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)
	return nil
}

// Stop ends the loop and waits for it to exit.
func (s *Stamper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Stamp appends one stamp record now.
func (s *Stamper) Stamp(ctx context.Context) error {
	rec := Format(s.now())
	if err := s.sink.Append(ctx, rec); err != nil {
		return err
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, "timestamp", "", rec); err != nil {
			logging.WarnWithContext(s.logger, "timestamp journal failed", "archive_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stamp missing from history"),
			)
		}
	}
	return nil
}

func (s *Stamper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Stamp(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.WarnWithContext(s.logger, "timestamp append failed", "timestamp_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "log is missing a timestamp record"),
				)
			}
		}
	}
}
