package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("protocol", &buf)
	l.Info().Str("operation", "dir_list").Msg("call finished")

	out := buf.String()
	if !strings.Contains(out, "call finished") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "protocol") {
		t.Errorf("expected component in output, got %q", out)
	}
}

func TestNamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger("cli", &buf)
	child := parent.Named("session")
	child.Warnf("logout failed: %s", "timeout")

	if !strings.Contains(buf.String(), "logout failed: timeout") {
		t.Errorf("child logger did not write to parent output: %q", buf.String())
	}
}

func TestEnableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.log")

	var buf bytes.Buffer
	l := NewLogger("cli", &buf)
	l.EnableFile(path)
	l.Info().Msg("to both sinks")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to both sinks") {
		t.Errorf("log file missing entry: %q", string(data))
	}
	if !strings.Contains(buf.String(), "to both sinks") {
		t.Errorf("console missing entry: %q", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error().Msg("dropped")
	l.Infof("dropped %d", 1)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
