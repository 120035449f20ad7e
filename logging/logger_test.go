package logging

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sampleEntry() *LogEntry {
	return &LogEntry{
		Time:     time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Level:    LogLevelInfo,
		Category: "host",
		Message:  "application started",
		Fields:   []Field{{Key: "env", Value: "development"}},
	}
}

func TestTextFormatter(t *testing.T) {
	out, err := NewTextFormatter().Format(sampleEntry())
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	line := string(out)

	for _, want := range []string{"2025-06-01 12:30:00", "INFO", "[host]", "application started", "env=development"} {
		if !strings.Contains(line, want) {
			t.Errorf("text output missing %q: %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("text output must end with newline")
	}
}

func TestJsonFormatter(t *testing.T) {
	out, err := NewJsonFormatter().Format(sampleEntry())
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var data map[string]any
	if err := json.Unmarshal(out, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data["level"] != "INFO" {
		t.Errorf("level = %v", data["level"])
	}
	if data["msg"] != "application started" {
		t.Errorf("msg = %v", data["msg"])
	}
	fields, ok := data["fields"].(map[string]any)
	if !ok || fields["env"] != "development" {
		t.Errorf("fields = %v", data["fields"])
	}
}

func TestWithFieldsAndCategory(t *testing.T) {
	base := NewLoggingBuilder().SetMinimumLevel(LogLevelDebug).AddConsole().Build()

	derived := base.WithFields(Field{Key: "request", Value: "r-1"}).WithCategory("web")
	if derived == base {
		t.Error("WithFields must return a derived logger")
	}
	// 派生 logger 不影响基础 logger 的分类
	derived.Debug("scoped message")
	base.Debug("base message")
}
