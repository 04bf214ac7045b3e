package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nxqueue/internal/config"
	"nxqueue/internal/logging"
	"nxqueue/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Format:  format,
		Level:   level,
		Outputs: []string{logPath, logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithQueue(context.Background(), "jobs")
	ctx = services.WithContent(ctx, "nxqueue:jobs#item1")
	return func() {
		component := logging.NewComponentLogger(logger, "queue-handler")
		logging.WithContext(ctx, component).Info("content enqueued", logging.Int64("execution_count", 1))
	}, logPath
}

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "nxqueue.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestConsoleLoggerFormatsComponentAndContext(t *testing.T) {
	emit, path := newFileLogger(t, "console", "info")
	emit()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO [queue-handler] nxqueue:jobs#item1: content enqueued", "queue=jobs", "execution_count=1"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no colour escapes in file output, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerEmitsStructuredFields(t *testing.T) {
	emit, path := newFileLogger(t, "json", "debug")
	emit()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &payload); err != nil {
		t.Fatalf("decode json log line: %v", err)
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["component"] != "queue-handler" || payload["queue"] != "jobs" {
		t.Fatalf("missing structured fields: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerFlattensGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "groups.log")
	logger, err := logging.New(logging.Options{Level: "warn", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped below level")
	logger.WithGroup("lock").Warn("lease expired", logging.String("key", "nxqueue:jobs#a b"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, "dropped below level") {
		t.Fatalf("expected info record to be filtered, got %q", line)
	}
	if !strings.Contains(line, `lock.key="nxqueue:jobs#a b"`) {
		t.Fatalf("expected grouped, quoted key in %q", line)
	}
}
