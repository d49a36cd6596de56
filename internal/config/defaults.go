package config

// Sink kinds.
const (
	SinkMemory  = "memory"
	SinkFile    = "file"
	SinkChardev = "chardev"
)

const (
	defaultLogDir             = "~/.local/share/ringlog/logs"
	defaultLogRetentionDays   = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultBind               = ":9000"
	defaultReadTimeoutSeconds = 30
	defaultCapacity           = 10
	defaultMaxRecordBytes     = 1 << 20
	defaultSinkFilePath       = "/var/tmp/aesdsocketdata"
	defaultDevicePath         = "/dev/aesdchar"
	defaultTimestampInterval  = 10
	defaultArchivePath        = "~/.local/share/ringlog/archive.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Server: Server{
			Bind:               defaultBind,
			ReadTimeoutSeconds: defaultReadTimeoutSeconds,
		},
		Buffer: Buffer{
			Capacity:       defaultCapacity,
			MaxRecordBytes: defaultMaxRecordBytes,
		},
		Sink: Sink{
			Kind:       SinkMemory,
			FilePath:   defaultSinkFilePath,
			DevicePath: defaultDevicePath,
		},
		Timestamp: Timestamp{
			IntervalSeconds: defaultTimestampInterval,
		},
		Archive: Archive{
			Path: defaultArchivePath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
