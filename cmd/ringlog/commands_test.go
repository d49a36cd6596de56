package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ringlog/internal/testsupport"
)

func TestStatusReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithArchive())
	testsupport.SendLine(t, env.listen, "hello\n")

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "1 of 10 records, 6 B")
	requireContains(t, out, "Committed:")
	requireContains(t, out, "1 records in ")
}

func TestStatusOfflineFallsBackToConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, "", configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "Capacity:")
	requireContains(t, out, "Disabled")
}

func TestRecordsReadAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithArchive())
	testsupport.SendLine(t, env.listen, "alpha\n")
	testsupport.SendLine(t, env.listen, "beta\n")

	out, _, err := runCLI(t, []string{"records"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	requireContains(t, out, `"alpha\n"`)
	requireContains(t, out, `"beta\n"`)

	out, _, err = runCLI(t, []string{"read", "--record", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != "beta\n" {
		t.Fatalf("unexpected read output %q", out)
	}

	out, _, err = runCLI(t, []string{"read", "--record", "0", "--offset", "3", "--limit", "4"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("read with offset: %v", err)
	}
	if out != "ha\nb" {
		t.Fatalf("unexpected read output %q", out)
	}

	if _, _, err := runCLI(t, []string{"read", "--record", "7"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected out of range read to fail")
	}

	out, _, err = runCLI(t, []string{"history", "--limit", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, `"beta\n"`)
	if strings.Contains(out, "alpha") {
		t.Fatalf("expected history limited to newest entry, got %q", out)
	}
}

func TestRecordsAndHistoryJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithArchive())
	testsupport.SendLine(t, env.listen, "a<b>\n")

	out, _, err := runCLI(t, []string{"records", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("records --json: %v", err)
	}
	requireContains(t, out, `"text": "a<b>\n"`)
	var records []struct {
		Index  int    `json:"index"`
		Offset int64  `json:"offset"`
		Size   int    `json:"size"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].Size != 5 || records[0].Text != "a<b>\n" {
		t.Fatalf("unexpected records %+v", records)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []struct {
		Source string `json:"source"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "a<b>\n" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestRecordsEmptyLog(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"records"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	requireContains(t, out, "Log is empty")
}

func TestSendCommandPrintsLog(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SendLine(t, env.listen, "first\n")

	out, _, err := runCLI(t, []string{"send", "--addr", env.listen, "second"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out != "first\nsecond\n" {
		t.Fatalf("unexpected send output %q", out)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(dir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"stop"}, filepath.Join(dir, "missing.sock"), configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestRecordsWithoutDaemonSuggestsStart(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(dir, "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"records"}, filepath.Join(dir, "missing.sock"), configPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "ringlog start")
}

func TestConfigInitShowValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "conf", "ringlog.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "show"}, "", target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[buffer]")
	requireContains(t, out, "capacity = 10")
}

func TestDialAddress(t *testing.T) {
	cases := map[string]string{
		":9000":          "localhost:9000",
		"0.0.0.0:9000":   "localhost:9000",
		"127.0.0.1:9001": "127.0.0.1:9001",
		"garbage":        "garbage",
	}
	for in, want := range cases {
		if got := dialAddress(in); got != want {
			t.Fatalf("dialAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreviewData(t *testing.T) {
	if got := previewData([]byte("a\tb\n")); got != `"a\tb\n"` {
		t.Fatalf("unexpected preview %q", got)
	}
	long := strings.Repeat("x", previewRunes+10)
	if got := previewData([]byte(long)); !strings.HasSuffix(got, `"...`) {
		t.Fatalf("expected truncated preview, got %q", got)
	}
	if got := previewData([]byte{0xff, 0xfe}); got != "<2 bytes binary>" {
		t.Fatalf("unexpected binary preview %q", got)
	}
}
