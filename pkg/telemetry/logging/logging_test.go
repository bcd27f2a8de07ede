package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/lazyproxy/pkg/config"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json",
			format: "json",
			check: func(t *testing.T, out string) {
				var rec map[string]any
				if err := json.Unmarshal([]byte(out), &rec); err != nil {
					t.Fatalf("expected JSON output, got %q: %v", out, err)
				}
				if rec["msg"] != "hello" || rec["service"] != "api" {
					t.Errorf("unexpected record %v", rec)
				}
			},
		},
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "service=api") {
					t.Errorf("unexpected text output %q", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(config.LoggingConfig{Level: "info", Format: tt.format}, &buf)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			logger.Info("hello", "service", "api")
			tt.check(t, strings.TrimSpace(buf.String()))
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn record should be written")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	if fields := Fields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithService(ctx, "api")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetService(ctx); got != "api" {
		t.Errorf("GetService() = %q", got)
	}

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	WithContext(base, ctx).Info("forwarding")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["request_id"] != "req-123" || rec["service"] != "api" {
		t.Errorf("context fields missing from %v", rec)
	}
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if WithContext(base, context.Background()) != base {
		t.Error("expected the same logger when the context carries no fields")
	}
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"page=2&sort=asc", "page=2&sort=asc"},
		{"token=abc&page=2", "page=2&token=%2A%2A%2A"},
		{"user_password=x", "user_password=%2A%2A%2A"},
		{"%zz", RedactedValue},
	}

	for _, tt := range tests {
		if got := RedactQuery(tt.in); got != tt.want {
			t.Errorf("RedactQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
