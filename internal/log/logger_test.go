package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: WarnLevel, Output: &buf})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message", "file", "macros.inc")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN should be filtered, got:\n%s", out)
	}
	if !strings.Contains(out, "WARN: warn message file=macros.inc") {
		t.Errorf("missing warn line, got:\n%s", out)
	}
	if !strings.Contains(out, "ERROR: error message") {
		t.Errorf("missing error line, got:\n%s", out)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: DebugLevel, Output: &buf})
	l.SetJSONOutput(true)

	l.Info("expanded include", "file", "a.inc", "lines", 12, "error", errors.New("boom"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "expanded include" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["file"] != "a.inc" {
		t.Errorf("file = %v", entry["file"])
	}
	if entry["lines"] != float64(12) {
		t.Errorf("lines = %v", entry["lines"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	got := formatMessage("parsed", "blocks", 3, "edges", 2)
	if got != "parsed blocks=3 edges=2" {
		t.Errorf("formatMessage() = %q", got)
	}
	if got := formatMessage("plain"); got != "plain" {
		t.Errorf("formatMessage() = %q", got)
	}
}

func TestProgressSpinner_StopWithoutStart(t *testing.T) {
	p := NewProgressSpinner("work", 2)
	p.Stop()
	p.Stop()
}

func TestProgressSpinner_Lifecycle(t *testing.T) {
	p := NewProgressSpinner("work", 2)
	p.Start()
	p.Increment()
	p.Increment()
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != 2 {
		t.Errorf("done = %d, want 2", p.done)
	}
}
