package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateTimestamp(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.ReadTimeoutSeconds < 0 {
		return errors.New("server.read_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateBuffer() error {
	if c.Buffer.Capacity <= 0 || c.Buffer.Capacity > 255 {
		return errors.New("buffer.capacity must be between 1 and 255")
	}
	if c.Buffer.MaxRecordBytes <= 0 {
		return errors.New("buffer.max_record_bytes must be positive")
	}
	return nil
}

func (c *Config) validateSink() error {
	switch c.Sink.Kind {
	case SinkMemory, SinkFile, SinkChardev:
	default:
		return fmt.Errorf("sink.kind: unsupported value %q (expected memory, file, or chardev)", c.Sink.Kind)
	}
	if c.Device.Watch && c.Sink.Kind != SinkChardev {
		return errors.New("device.watch requires sink.kind = \"chardev\"")
	}
	return nil
}

func (c *Config) validateTimestamp() error {
	if c.Timestamp.Enabled && c.Timestamp.IntervalSeconds <= 0 {
		return errors.New("timestamp.interval_seconds must be positive when timestamp.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
