package engine

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestFileURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/report.odt", "file:///tmp/report.odt"},
		{"/tmp/with space.docx", "file:///tmp/with%20space.docx"},
	}
	for _, tt := range tests {
		got, err := FileURL(tt.path)
		if err != nil {
			t.Fatalf("FileURL(%q) error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("FileURL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFileURLMakesRelativePathsAbsolute(t *testing.T) {
	got, err := FileURL("doc.odt")
	if err != nil {
		t.Fatalf("FileURL error: %v", err)
	}
	abs, _ := filepath.Abs("doc.odt")
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, filepath.ToSlash(abs)) {
		t.Errorf("FileURL(doc.odt) = %q, want absolute URL ending in %q", got, abs)
	}
}

func TestFileURLRejectsPrefixedPath(t *testing.T) {
	_, err := FileURL("file:///tmp/report.odt")
	if !errors.Is(err, ErrFileURL) {
		t.Errorf("error = %v, want ErrFileURL", err)
	}
}

func TestBufferSize(t *testing.T) {
	if got := BufferSize(100, 50); got != 20000 {
		t.Errorf("BufferSize(100, 50) = %d, want 20000", got)
	}
}

func TestError(t *testing.T) {
	var err error = Errorf("Unable to initialize office from %s", "/opt/lo")
	var engineErr *Error
	if !errors.As(err, &engineErr) {
		t.Fatal("errors.As failed for *Error")
	}
	if engineErr.Message != "Unable to initialize office from /opt/lo" {
		t.Errorf("Message = %q", engineErr.Message)
	}
}

func TestAcquireLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engine.lock")

	first, err := AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	if _, err := AcquireLock(ctx, path); err == nil {
		t.Fatal("second AcquireLock succeeded while the lock was held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}
