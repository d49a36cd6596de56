package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"ringlog/internal/daemon"
	"ringlog/internal/logging"
)

// serviceName prefixes every RPC method.
const serviceName = "Ringlog"

// defaultHistoryLimit applies when a history request carries no limit.
const defaultHistoryLimit = 50

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun ringlog stop"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	*resp = StatusResponse{
		Running:         status.Running,
		PID:             status.PID,
		StartedAt:       status.StartedAt,
		LockPath:        status.LockFilePath,
		LogPath:         status.LogPath,
		Listen:          status.Listen,
		SinkKind:        status.SinkKind,
		SinkPath:        status.SinkPath,
		DeviceAvailable: status.DeviceAvailable,
		Capacity:        status.Capacity,
		Records:         status.Records,
		TotalBytes:      status.TotalBytes,
		Server: ServerStats{
			Accepted:  status.Server.Accepted,
			Committed: status.Server.Committed,
			Failed:    status.Server.Failed,
			Active:    status.Server.Active,
		},
		ArchiveEnabled: status.ArchiveEnabled,
		ArchivePath:    status.ArchivePath,
		ArchiveCount:   status.ArchiveCount,
	}
	if status.TimestampEvery > 0 {
		resp.TimestampEvery = status.TimestampEvery.String()
	}
	return nil
}

func (s *service) Records(_ RecordsRequest, resp *RecordsResponse) error {
	records, err := s.daemon.Records(s.ctx)
	if err != nil {
		return err
	}
	resp.Records = make([]Record, 0, len(records))
	for _, r := range records {
		resp.Records = append(resp.Records, Record{Index: r.Index, Offset: r.Offset, Data: r.Data})
	}
	return nil
}

func (s *service) Read(req ReadRequest, resp *ReadResponse) error {
	data, err := s.daemon.ReadRecord(s.ctx, req.Record, req.Offset, req.Limit)
	if err != nil {
		return err
	}
	resp.Data = data
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		resp.Entries = append(resp.Entries, HistoryEntry{
			ID:           e.ID,
			RecordedAt:   e.RecordedAt,
			Source:       e.Source,
			ConnectionID: e.ConnectionID,
			Payload:      e.Payload,
		})
	}
	return nil
}
