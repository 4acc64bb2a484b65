package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestNopLoggerSatisfiesInterface(t *testing.T) {
	var _ Logger = NopLogger{}
	var l Logger = NopLogger{}
	l.Info("does nothing", String("k", "v"))
	if child := l.With(Int("n", 1)); child == nil {
		t.Fatal("With returned nil")
	}
}

func TestConsoleLoggerLevelsAndFields(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, LevelInfo)

	l.Debug("hidden")
	l.Warn("field skipped", String("column", "Name"), Int("row", 3))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "column=Name") || !strings.Contains(out, "row=3") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConsoleLoggerWithBindsFields(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, LevelDebug).With(String("page", "2"))

	l.Info("activated")
	if out := buf.String(); !strings.Contains(out, "page=2") {
		t.Fatalf("bound field missing: %q", out)
	}
}
