package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ppemonitor/internal/config"
)

func newTestLogger(t *testing.T, debug bool) (*Logger, string) {
	t.Helper()

	dir := t.TempDir()
	l := NewLogger(&config.Config{LogDirectory: dir, LogMaxSizeMB: 1, LogDebug: debug})
	t.Cleanup(func() { l.Close() })
	return l, dir
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestLogger_LevelsGoToTheirFiles(t *testing.T) {
	l, dir := newTestLogger(t, false)

	l.Info("frame %d processed", 30)
	l.Warning("camera %s reconnecting", "gate")
	l.Error("decode failed: %v", "bad marker")
	l.Debug("hidden entry")

	if got := readLog(t, dir, InfoFile); !strings.Contains(got, "INFO") || !strings.Contains(got, "frame 30 processed") {
		t.Errorf("Unexpected info log: %q", got)
	}
	if got := readLog(t, dir, WarningFile); !strings.Contains(got, "camera gate reconnecting") {
		t.Errorf("Unexpected warning log: %q", got)
	}
	if got := readLog(t, dir, ErrorFile); !strings.Contains(got, "decode failed: bad marker") {
		t.Errorf("Unexpected error log: %q", got)
	}
	if strings.Contains(readLog(t, dir, InfoFile), "hidden entry") {
		t.Error("Debug entries should be dropped when debug logging is off")
	}
}

func TestLogger_Debug(t *testing.T) {
	l, dir := newTestLogger(t, true)

	l.Debug("hardhat brightness=%.1f", 42.0)

	if got := readLog(t, dir, InfoFile); !strings.Contains(got, "DEBUG") || !strings.Contains(got, "hardhat brightness=42.0") {
		t.Errorf("Expected debug entry in info log, got %q", got)
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l, dir := newTestLogger(t, false)
	l.Error("first failure")

	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("Failed to clean logs: %v", err)
	}
	if got := readLog(t, dir, ErrorFile); got != "" {
		t.Errorf("Expected empty error log, got %q", got)
	}

	l.Error("second failure")
	got := readLog(t, dir, ErrorFile)
	if !strings.Contains(got, "second failure") || strings.Contains(got, "first failure") {
		t.Errorf("Expected only the new entry, got %q", got)
	}
}

func TestLogger_CleanLogsRejectsUnknownFile(t *testing.T) {
	l, _ := newTestLogger(t, false)

	if err := l.CleanLogs("../../etc/passwd"); err == nil {
		t.Error("Expected an error for an unknown log file")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()

	l.Info("ignored")
	l.Warning("ignored")
	l.Error("ignored")
	l.Debug("ignored")
	if err := l.CleanLogs(InfoFile); err == nil {
		t.Error("Nop logger has no files to clean")
	}
}
