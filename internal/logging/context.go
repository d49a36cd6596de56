package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldConnectionID is the standardized structured logging key for line server connections.
	FieldConnectionID = "connection_id"
	// FieldPeer is the standardized structured logging key for remote addresses.
	FieldPeer = "peer"
	// FieldSink names the record sink a log line refers to.
	FieldSink = "sink"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldRecordIndex is the logical index of a stored record.
	FieldRecordIndex = "record_index"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey int

const (
	connectionIDKey contextKey = iota
	peerKey
)

// WithConnectionID stores a connection correlation ID on ctx.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// ConnectionIDFromContext returns the connection ID stored on ctx.
func ConnectionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(connectionIDKey).(string)
	return id, ok && id != ""
}

// WithPeer stores the remote address of a connection on ctx.
func WithPeer(ctx context.Context, peer string) context.Context {
	return context.WithValue(ctx, peerKey, peer)
}

// PeerFromContext returns the remote address stored on ctx.
func PeerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	peer, ok := ctx.Value(peerKey).(string)
	return peer, ok && peer != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ConnectionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldConnectionID, id))
	}
	if peer, ok := PeerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPeer, peer))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
