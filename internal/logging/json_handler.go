package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// jsonHandler writes one JSON object per record. Connection fields carried on
// the context are added at the top level unless the logger already has them.
type jsonHandler struct {
	inner   slog.Handler
	hasConn bool
	hasPeer bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return &jsonHandler{inner: slog.NewJSONHandler(w, &opts)}, nil
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	// Intervals and timeouts read better as "5s" than as nanoseconds.
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	var extra []slog.Attr
	if !h.hasConn {
		if id, ok := ConnectionIDFromContext(ctx); ok && !recordHasKey(record, FieldConnectionID) {
			extra = append(extra, slog.String(FieldConnectionID, id))
		}
	}
	if !h.hasPeer {
		if peer, ok := PeerFromContext(ctx); ok && !recordHasKey(record, FieldPeer) {
			extra = append(extra, slog.String(FieldPeer, peer))
		}
	}
	if len(extra) > 0 {
		record = record.Clone()
		record.AddAttrs(extra...)
	}
	return h.inner.Handle(ctx, record)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &jsonHandler{
		inner:   h.inner.WithAttrs(attrs),
		hasConn: h.hasConn || HasAttrKey(attrs, FieldConnectionID),
		hasPeer: h.hasPeer || HasAttrKey(attrs, FieldPeer),
	}
}

// WithGroup stops context promotion, since added fields would land inside
// the group.
func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &jsonHandler{inner: h.inner.WithGroup(name), hasConn: true, hasPeer: true}
}

func recordHasKey(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
