package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/relaydb/dbshift/internal/log"
)

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	if _, err := log.NewLogger("xml", log.Info, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestNewLoggerDefaultsToStandardFormat(t *testing.T) {
	var out bytes.Buffer
	l, err := log.NewLogger("", log.Info, &out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.InfoContext(context.Background(), "hello", "k", "v")
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("expected message in output, got %q", out.String())
	}
}

func TestStdLoggerRoutesWarnAndErrorToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	l, err := log.NewStdLogger(&out, &errOut, log.Debug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.InfoContext(context.Background(), "info message")
	l.ErrorContext(context.Background(), "error message")

	if !strings.Contains(out.String(), "info message") {
		t.Errorf("expected info message on out writer, got %q", out.String())
	}
	if strings.Contains(out.String(), "error message") {
		t.Errorf("did not expect error message on out writer, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "error message") {
		t.Errorf("expected error message on err writer, got %q", errOut.String())
	}
}

func TestStdLoggerRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	l, err := log.NewStdLogger(&out, &bytes.Buffer{}, log.Error)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.InfoContext(context.Background(), "should be suppressed")
	if out.Len() != 0 {
		t.Errorf("expected no output below configured level, got %q", out.String())
	}
}

func TestStructuredLoggerEmitsJSONWithSeverityField(t *testing.T) {
	var out bytes.Buffer
	l, err := log.NewStructuredLogger(&out, &bytes.Buffer{}, log.Info)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.InfoContext(context.Background(), "migrating table", "table", "public.users")

	var payload map[string]any
	line := strings.TrimSpace(out.String())
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", line, err)
	}
	if payload["severity"] != "INFO" {
		t.Errorf("severity = %v, want INFO", payload["severity"])
	}
	if payload["message"] != "migrating table" {
		t.Errorf("message = %v, want %q", payload["message"], "migrating table")
	}
	if payload["table"] != "public.users" {
		t.Errorf("table attr = %v, want public.users", payload["table"])
	}
}

func TestSeverityToLevelInvalid(t *testing.T) {
	if _, err := log.SeverityToLevel("TRACE"); err == nil {
		t.Error("expected error for unrecognized severity")
	}
}
