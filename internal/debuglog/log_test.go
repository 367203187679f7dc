package debuglog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelOff, "OFF"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		if got := test.level.String(); got != test.expected {
			t.Errorf("LogLevel.String() = %q, want %q", got, test.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{" info ", LevelInfo},
		{"WARNING", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"off", LevelOff},
		{"INVALID", LevelInfo},
		{"", LevelInfo},
	}

	for _, test := range tests {
		if got := ParseLogLevel(test.input); got != test.expected {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func TestSetupWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	if err := Setup(LevelInfo, logPath); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	Debugf("debug message")
	Infof("info message")
	Warnf("warn %s", "message")
	Errorf("error message")

	if err := Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	logContent := string(content)
	if strings.Contains(logContent, "debug message") {
		t.Error("DEBUG message should not appear with INFO level")
	}
	for _, want := range []string{"info message", "warn message", "error message", "app=jobfeed"} {
		if !strings.Contains(logContent, want) {
			t.Errorf("log should contain %q, got %s", want, logContent)
		}
	}
}

func TestSetupWithLevelOff(t *testing.T) {
	if err := Setup(LevelOff); err != nil {
		t.Fatalf("Setup with LevelOff failed: %v", err)
	}
	if GetLevel() != LevelOff {
		t.Errorf("GetLevel() = %v, want %v", GetLevel(), LevelOff)
	}

	// Must not panic without a logger.
	Infof("info message")
	WithFields(map[string]any{"k": "v"}).Errorf("error message")
}

func TestFieldLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, LevelDebug)
	defer SetOutput(nil, LevelOff)

	WithFields(map[string]any{
		"source": "ssc",
		"batch":  2,
	}).Warnf("fetch failed")

	out := buf.String()
	if !strings.Contains(out, "fetch failed") {
		t.Errorf("missing message: %s", out)
	}
	if !strings.Contains(out, "source=ssc") || !strings.Contains(out, "batch=2") {
		t.Errorf("missing fields: %s", out)
	}
	if strings.Index(out, "batch=2") > strings.Index(out, "source=ssc") {
		t.Errorf("fields should be emitted in key order: %s", out)
	}
}

func TestSetLevelAppliesToHandler(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, LevelError)
	defer SetOutput(nil, LevelOff)

	Infof("hidden")
	SetLevel(LevelDebug)
	Debugf("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("INFO should be filtered at ERROR level")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("DEBUG should pass after SetLevel(LevelDebug)")
	}
}
