package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ringlog/internal/config"
	"ringlog/internal/linebuf"
	"ringlog/internal/logging"
	"ringlog/internal/ringbuf"
	"ringlog/internal/sink"
	"ringlog/internal/workers"
)

const (
	readChunk     = 1024
	acceptBackoff = 50 * time.Millisecond
)

// Recorder journals committed records.
type Recorder interface {
	Record(ctx context.Context, source, connID string, payload []byte) error
}

// Stats counts server activity since Start.
type Stats struct {
	Accepted  int64
	Committed int64
	Failed    int64
	Active    int
}

// Server accepts line-protocol connections.
type Server struct {
	bind        string
	readTimeout time.Duration
	maxRecord   int
	sink        sink.Sink
	recorder    Recorder
	logger      *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	registry *workers.Registry
	loops    sync.WaitGroup
	stop     chan struct{}

	accepted  atomic.Int64
	committed atomic.Int64
	failed    atomic.Int64
}

// New creates a server that commits records to s. recorder may be nil.
func New(cfg *config.Config, s sink.Sink, recorder Recorder, logger *slog.Logger) *Server {
	srv := &Server{
		bind:     ":9000",
		sink:     s,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "server"),
	}
	if cfg != nil {
		srv.bind = cfg.Server.Bind
		srv.readTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
		srv.maxRecord = cfg.Buffer.MaxRecordBytes
	}
	return srv
}

// Start binds the listener and begins accepting connections. Connection
// contexts derive from ctx.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.listener = ln
	s.registry = workers.New(ctx)
	s.stop = make(chan struct{})

	s.loops.Add(2)
	go s.acceptLoop(ln, s.registry)
	go s.reapLoop(s.registry, s.stop)

	s.logger.Info("line server listening",
		logging.String("addr", ln.Addr().String()),
		logging.String(logging.FieldSink, s.sink.Name()),
		logging.String(logging.FieldEventType, "server_listening"),
	)
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns activity counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	registry := s.registry
	s.mu.Unlock()
	stats := Stats{
		Accepted:  s.accepted.Load(),
		Committed: s.committed.Load(),
		Failed:    s.failed.Load(),
	}
	if registry != nil {
		stats.Active = registry.Active()
	}
	return stats
}

// Stop closes the listener, cancels in-flight connections and joins them
// until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	registry := s.registry
	stop := s.stop
	s.listener = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	closeErr := ln.Close()
	joinErr := registry.Shutdown(ctx)
	close(stop)
	s.loops.Wait()

	s.logger.Info("line server stopped",
		logging.Int64("accepted", s.accepted.Load()),
		logging.Int64("committed", s.committed.Load()),
		logging.String(logging.FieldEventType, "server_stopped"),
	)
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return errors.Join(fmt.Errorf("close listener: %w", closeErr), joinErr)
	}
	return joinErr
}

func (s *Server) acceptLoop(ln net.Listener, registry *workers.Registry) {
	defer s.loops.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.WarnWithContext(s.logger, "accept failed", "accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a client connection was dropped"),
			)
			time.Sleep(acceptBackoff)
			continue
		}
		s.accepted.Add(1)
		if _, err := registry.Spawn("conn "+conn.RemoteAddr().String(), func(ctx context.Context) error {
			return s.handle(ctx, conn)
		}); err != nil {
			conn.Close()
			return
		}
	}
}

func (s *Server) reapLoop(registry *workers.Registry, stop <-chan struct{}) {
	defer s.loops.Done()
	for {
		select {
		case <-registry.Finished():
			s.reap(registry)
		case <-stop:
			s.reap(registry)
			return
		}
	}
}

func (s *Server) reap(registry *workers.Registry) {
	for _, task := range registry.Reap() {
		if err := task.Wait(); err != nil {
			s.failed.Add(1)
			s.logger.Debug("connection task failed",
				logging.String("task", task.Name),
				logging.String("task_id", task.ID),
				logging.Error(err),
			)
		}
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stopWatch := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopWatch()

	connID := uuid.NewString()
	ctx = logging.WithConnectionID(ctx, connID)
	ctx = logging.WithPeer(ctx, conn.RemoteAddr().String())
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("connection accepted", logging.String(logging.FieldEventType, "connection_accepted"))

	rec, err := s.readRecord(conn, logger)
	if err != nil {
		logging.WarnWithContext(logger, "connection aborted before a record completed", "connection_aborted",
			logging.Error(err),
			logging.String(logging.FieldImpact, "nothing was stored for this connection"),
		)
		return err
	}
	if rec == nil {
		logger.Debug("client closed without a complete record")
		return nil
	}

	if err := s.sink.Append(ctx, rec); err != nil {
		logging.ErrorWithContext(logger, "record commit failed", "record_commit_failed",
			logging.Error(err),
			logging.String(logging.FieldSink, s.sink.Name()),
		)
		return fmt.Errorf("commit record: %w", err)
	}
	s.committed.Add(1)
	logger.Info("record committed", logging.Record(rec), logging.String(logging.FieldEventType, "record_committed"))

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, conn.RemoteAddr().String(), connID, rec); err != nil {
			logging.WarnWithContext(logger, "record journal failed", "archive_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "record missing from history"),
				logging.String(logging.FieldErrorHint, "check archive.path permissions"),
			)
		}
	}

	if s.readTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.readTimeout))
	}
	n, err := s.sink.Dump(ctx, conn)
	if err != nil {
		logging.WarnWithContext(logger, "log dump failed", "dump_failed",
			logging.Error(err),
			logging.Int64("bytes_sent", n),
			logging.String(logging.FieldImpact, "client received a partial log"),
		)
		if errors.Is(err, ringbuf.ErrIO) {
			return err
		}
		return fmt.Errorf("%w: dump: %w", ringbuf.ErrIO, err)
	}
	logger.Debug("log sent", logging.Int64("bytes", n))
	return nil
}

// readRecord reads until the first terminator. Bytes after it in the same
// read are discarded. A nil record with a nil error means the client closed
// the connection first.
func (s *Server) readRecord(conn net.Conn, logger *slog.Logger) ([]byte, error) {
	acc := linebuf.New(s.maxRecord)
	buf := make([]byte, readChunk)
	for {
		if s.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		n, readErr := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if i := bytes.IndexByte(chunk, linebuf.Terminator); i >= 0 && i+1 < n {
				logger.Debug("discarding bytes after terminator", logging.Int("bytes", n-i-1))
				chunk = chunk[:i+1]
			}
			rec, err := acc.Feed(chunk)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: read: %w", ringbuf.ErrIO, readErr)
		}
	}
}
