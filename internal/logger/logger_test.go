package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notifyhub/tubealert/internal/config"
	"github.com/notifyhub/tubealert/internal/logger"
)

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := logger.New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := logger.New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubealert.log")

	log, err := logger.New(config.LogConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Info("worker started")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "worker started") {
		t.Fatalf("expected log line in file, got %q", data)
	}
}
