package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", line, err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")
	l.Debug("request completed", Fields(FieldStatus, 200, FieldPath, "/get"))

	entry := decodeLine(t, &buf)
	if entry["message"] != "request completed" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry[FieldService] != "test-svc" {
		t.Errorf("expected service field, got %v", entry[FieldService])
	}
	if entry[FieldStatus] != float64(200) {
		t.Errorf("expected status 200, got %v", entry[FieldStatus])
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug/info to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn to be written, got %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")
	l.Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("expected invalid level to fall back to info")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cl := newJSONLogger(&buf, "info").WithComponent("httpclient")
	if cl.service != "test-svc" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
	cl.Info("hello")
	if entry := decodeLine(t, &buf); entry[FieldComponent] != "httpclient" {
		t.Errorf("expected component field, got %v", entry[FieldComponent])
	}
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info")

	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected same logger when context has no request id")
	}

	ctx := ContextWithRequestID(context.Background(), "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("expected request id round-trip through context")
	}
	l.WithContext(ctx).Info("tagged")
	if entry := decodeLine(t, &buf); entry[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id field, got %v", entry[FieldRequestID])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").
		WithFields(map[string]interface{}{"key": "value"}).
		WithError(errors.New("boom"))
	l.Error("failed")

	entry := decodeLine(t, &buf)
	if entry["key"] != "value" {
		t.Errorf("expected key=value, got %v", entry["key"])
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", entry["error"])
	}
}

func TestNop(t *testing.T) {
	// Must not panic.
	Nop().Error("discarded", Fields("k", "v"))
}

func TestGlobalLogger(t *testing.T) {
	Init(Config{Level: "info", Format: "json", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}

	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}

	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be recreated")
	}

	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	_ = WithComponent("x")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected output 'stderr', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "svc", &buf)
	l.Warn("careful")
	if !strings.Contains(buf.String(), "[WRN]") {
		t.Errorf("expected [WRN] tag, got %q", buf.String())
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("my-component", l)
	defer Unregister("my-component")

	if got := Get("my-component"); got != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if got := Get("unregistered-component"); got == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestFields(t *testing.T) {
	got := Fields("op", "save", "id", 42, "dangling")
	if len(got) != 2 || got["op"] != "save" || got["id"] != 42 {
		t.Errorf("unexpected fields %v", got)
	}
	if got := Fields(1, "x"); len(got) != 0 {
		t.Errorf("expected non-string keys to be skipped, got %v", got)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("acquire", errors.New("refused"))
	if ef[FieldOperation] != "acquire" || ef[FieldError] != "refused" {
		t.Errorf("unexpected error fields %v", ef)
	}

	merged := MergeWithDuration(MergeWithError(nil, errors.New("x")), 1500*time.Millisecond)
	if merged[FieldDuration] != int64(1500) {
		t.Errorf("expected duration 1500, got %v", merged[FieldDuration])
	}
	if merged[FieldError] != "x" {
		t.Errorf("expected error x, got %v", merged[FieldError])
	}
}

func TestOutputWriter(t *testing.T) {
	if outputWriter("stdout") != os.Stdout {
		t.Error("expected stdout")
	}
	if outputWriter("anything") != os.Stderr {
		t.Error("expected stderr default")
	}
}
