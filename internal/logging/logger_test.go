package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupCreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	closer, err := Setup("info", dir)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closer.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read log directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("log file count = %d, want 1", len(entries))
	}

	name := entries[0].Name()
	want := "walletd-" + time.Now().Format("2006-01-02") + ".log"
	if name != want {
		t.Errorf("log file name = %q, want %q", name, want)
	}

	// The initialization line must already be in the file.
	slog.Info("test entry")
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Error("log file is empty after logging")
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := Setup("verbose", t.TempDir()); err == nil {
		t.Error("Setup() with unknown level should fail")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "walletd-2020-01-01.log")
	if err := os.WriteFile(oldFile, []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to create old log file: %v", err)
	}
	oldTime := time.Now().AddDate(0, 0, -60)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("failed to backdate log file: %v", err)
	}

	freshFile := filepath.Join(dir, "walletd-fresh.log")
	if err := os.WriteFile(freshFile, []byte("fresh"), 0o644); err != nil {
		t.Fatalf("failed to create fresh log file: %v", err)
	}

	otherFile := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(otherFile, []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to create unrelated file: %v", err)
	}
	if err := os.Chtimes(otherFile, oldTime, oldTime); err != nil {
		t.Fatalf("failed to backdate unrelated file: %v", err)
	}

	removed := CleanOldLogs(dir, 30)
	if removed != 1 {
		t.Errorf("CleanOldLogs() = %d, want 1", removed)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old log file was not removed")
	}
	if _, err := os.Stat(freshFile); err != nil {
		t.Error("fresh log file should survive cleanup")
	}
	if _, err := os.Stat(otherFile); err != nil {
		t.Error("unrelated file should survive cleanup")
	}
}
