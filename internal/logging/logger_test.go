package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel should reject unknown levels")
	}
}

func TestNew_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "tileprep.log")

	logger, err := New(Options{Level: "info", File: path, Console: &console, RunID: "run-1"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("scene tiled")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if !strings.Contains(console.String(), "scene tiled") {
		t.Errorf("console output missing message: %q", console.String())
	}
	if strings.Contains(console.String(), "hidden") {
		t.Error("debug entry should be filtered at info level")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(b), &entry); err != nil {
		t.Fatalf("log file is not a JSON line: %v", err)
	}
	if entry[FieldMessage] != "scene tiled" {
		t.Errorf("message = %v, want %q", entry[FieldMessage], "scene tiled")
	}
	if entry[FieldRunID] != "run-1" {
		t.Errorf("run_id = %v, want %q", entry[FieldRunID], "run-1")
	}
}

func TestNew_GeneratesRunID(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Options{Console: &console})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello")

	if !strings.Contains(console.String(), FieldRunID) {
		t.Errorf("console output missing run id: %q", console.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("New should fail for an unknown level")
	}
}

func TestEncoderConfigs(t *testing.T) {
	for name, cfg := range map[string]zapcore.EncoderConfig{
		"file":    NewEncoderConfig(),
		"console": NewConsoleEncoderConfig(),
	} {
		if cfg.MessageKey != FieldMessage || cfg.TimeKey != FieldTimestamp {
			t.Errorf("%s: keys = %q/%q", name, cfg.MessageKey, cfg.TimeKey)
		}
		if cfg.EncodeTime == nil || cfg.EncodeLevel == nil {
			t.Errorf("%s: encoders not set", name)
		}
	}
}

type stringCollector struct {
	zapcore.PrimitiveArrayEncoder
	got string
}

func (s *stringCollector) AppendString(v string) { s.got = v }

func TestShortTimeEncoder(t *testing.T) {
	var enc stringCollector
	shortTimeEncoder(time.Date(2024, 1, 15, 14, 30, 45, 123000000, time.UTC), &enc)
	if enc.got != "14:30:45.123" {
		t.Errorf("shortTimeEncoder = %q, want %q", enc.got, "14:30:45.123")
	}
}
