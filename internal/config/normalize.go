package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeSink(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("RINGLOG_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
}

func (c *Config) normalizeSink() error {
	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))
	if c.Sink.Kind == "" {
		c.Sink.Kind = SinkMemory
	}
	if strings.TrimSpace(c.Sink.FilePath) == "" {
		c.Sink.FilePath = defaultSinkFilePath
	}
	var err error
	if c.Sink.FilePath, err = expandPath(c.Sink.FilePath); err != nil {
		return fmt.Errorf("sink.file_path: %w", err)
	}
	c.Sink.DevicePath = strings.TrimSpace(c.Sink.DevicePath)
	if c.Sink.DevicePath == "" {
		c.Sink.DevicePath = defaultDevicePath
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	if strings.TrimSpace(c.Archive.Path) == "" {
		c.Archive.Path = defaultArchivePath
	}
	var err error
	if c.Archive.Path, err = expandPath(c.Archive.Path); err != nil {
		return fmt.Errorf("archive.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
