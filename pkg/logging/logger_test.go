package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultsToInfoOnStderr(t *testing.T) {
	l := New(Config{})
	if l == nil {
		t.Fatal("New returned nil")
	}
	if l.slog == nil {
		t.Fatal("expected non-nil slog handler")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{LogDir: dir, Service: "test-svc", Quiet: true})
	defer l.Close()

	l.Info("hello", "key", "value")

	matches, err := filepath.Glob(filepath.Join(dir, "test-svc_*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one log file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file after Info()")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := expandPath("~/logs")
	want := filepath.Join(home, "logs")
	if got != want {
		t.Errorf("expandPath(~/logs) = %q, want %q", got, want)
	}
}

func TestExpandPathNoTilde(t *testing.T) {
	got := expandPath("/var/log/devpost-upgrade")
	if got != "/var/log/devpost-upgrade" {
		t.Errorf("expandPath passthrough = %q", got)
	}
}

func TestWithAddsPersistentAttrs(t *testing.T) {
	base := New(Config{Quiet: true})
	child := base.With("run_id", "abc123")
	if child == nil {
		t.Fatal("With returned nil")
	}
	// Should not panic and should be independently usable.
	child.Info("checkpoint saved")
}

func TestCloseWithoutLogFileIsNoop(t *testing.T) {
	l := New(Config{Quiet: true})
	if err := l.Close(); err != nil {
		t.Errorf("Close() with no log file should be a no-op, got %v", err)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
