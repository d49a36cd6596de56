package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"ringlog/internal/config"
	"ringlog/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	pid, err := ReadPID(valid)
	if err != nil || pid != 4242 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}

	for name, content := range map[string]string{"garbage": "abc", "zero": "0"} {
		path := filepath.Join(dir, name+".pid")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write pid: %v", err)
		}
		if _, err := ReadPID(path); err == nil {
			t.Fatalf("expected error for %s pid file", name)
		}
	}
	if _, err := ReadPID(filepath.Join(dir, "missing.pid")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	_, err := StopAndTerminate(cfg.SocketPath(), cfg, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	alive, pid, err := ProcessInfo(cfg.SocketPath())
	if err != nil || alive || pid != 0 {
		t.Fatalf("ProcessInfo = %v, %d, %v", alive, pid, err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSink(config.SinkFile), testsupport.WithArchive())
	snapshot, err := BuildStatusSnapshot(cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Running {
		t.Fatal("expected offline snapshot")
	}
	if snapshot.SinkPath != cfg.Sink.FilePath || !snapshot.ArchiveEnabled {
		t.Fatalf("unexpected snapshot: %#v", snapshot)
	}
	if _, err := BuildStatusSnapshot(cfg.SocketPath(), nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestProcessAliveSelf(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Fatal("expected current process alive")
	}
}

func TestIsDaemonUnavailable(t *testing.T) {
	if !isDaemonUnavailable(syscall.ECONNREFUSED) {
		t.Fatal("expected ECONNREFUSED to mean unavailable")
	}
	if isDaemonUnavailable(errors.New("boom")) {
		t.Fatal("unexpected unavailable for generic error")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
