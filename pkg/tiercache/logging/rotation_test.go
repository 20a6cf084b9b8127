package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/tiercache/pkg/tiercache/logging"
)

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "size.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 256})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() > 256 {
		t.Errorf("current log size = %d, want <= 256", info.Size())
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "size.*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(rotated) == 0 {
		t.Error("expected at least one rotated file")
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "backups.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    128,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 50; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("y", 40) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "backups.*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(rotated) > 2 {
		t.Errorf("rotated files = %d, want <= 2", len(rotated))
	}
}

func TestRotatingWriterCreatesDirectories(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "a", "b", "nested.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRotatingWriterWriteAfterClose(t *testing.T) {
	t.Parallel()

	writer, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := writer.Write([]byte("late\n")); err == nil {
		t.Error("Write() after Close() succeeded, want error")
	}
}
