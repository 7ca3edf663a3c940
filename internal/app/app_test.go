package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woow-admin/woow/internal/config"
	"github.com/woow-admin/woow/internal/logtail"
)

func TestNewLogger_WritesParsableLinesAtConfiguredLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "woow.log")
	cfg := config.Config{LogFile: logPath, LogLevel: "warn"}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("newLogger returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("retry queued", "request_id", "save_1")
	closeLog()

	entries, err := logtail.Tail(logPath, 0, slog.LevelDebug)
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %#v, want only the warning", entries)
	}
	if entries[0].Message != "retry queued" || entries[0].Attr("request_id") != "save_1" {
		t.Fatalf("entry = %#v", entries[0])
	}
}

func TestNewLogger_EmptyPathDiscards(t *testing.T) {
	logger, closeLog, err := newLogger(config.Config{})
	if err != nil {
		t.Fatalf("newLogger returned error: %v", err)
	}
	defer closeLog()
	logger.Error("nowhere")
}

func TestNewHandler_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, slog.LevelInfo)).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `msg=hello k=v`) {
		t.Fatalf("output = %q, want text handler format", buf.String())
	}
}

func TestNewLogger_UnwritableDirFails(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := newLogger(config.Config{LogFile: filepath.Join(blocker, "woow.log")}); err == nil {
		t.Fatalf("newLogger returned nil error for a path under a regular file")
	}
}
