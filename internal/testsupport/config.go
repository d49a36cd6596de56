package testsupport

import (
	"path/filepath"
	"testing"

	"ringlog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The line server binds an ephemeral loopback port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.ReadTimeoutSeconds = 5
	cfgVal.Sink.FilePath = filepath.Join(base, "aesdsocketdata")
	cfgVal.Sink.DevicePath = filepath.Join(base, "aesdchar")
	cfgVal.Archive.Path = filepath.Join(base, "archive.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSink selects the sink kind.
func WithSink(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sink.Kind = kind
	}
}

// WithCapacity sets the ring capacity.
func WithCapacity(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Buffer.Capacity = n
	}
}

// WithArchive enables the SQLite journal.
func WithArchive() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Enabled = true
	}
}

// WithTimestamps enables the stamper at the given interval in seconds.
func WithTimestamps(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timestamp.Enabled = true
		b.cfg.Timestamp.IntervalSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
