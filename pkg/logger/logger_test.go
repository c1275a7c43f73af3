package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestAreaFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf)

	Debug(AreaInterpreter, "running %d lines", 3)
	if !strings.Contains(buf.String(), "[INTERPRETER] running 3 lines") {
		t.Fatalf("Expected interpreter entry, got %q", buf.String())
	}

	buf.Reset()
	DisableArea(AreaInterpreter)
	Debug(AreaInterpreter, "hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected no output for a disabled area, got %q", buf.String())
	}
	if GetAreaStatus(AreaInterpreter) {
		t.Error("Expected area to report disabled")
	}

	EnableArea(AreaInterpreter)
	Info(AreaInterpreter, "visible")
	if !strings.Contains(buf.String(), "INFO") {
		t.Errorf("Expected INFO entry, got %q", buf.String())
	}

	buf.Reset()
	Debug(LogArea("unknown"), "dropped")
	if buf.Len() != 0 {
		t.Error("Unknown areas must not be logged")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"WARNING": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestListAreasReturnsCopy(t *testing.T) {
	areas := ListAreas()
	areas[0] = "changed"
	if ListAreas()[0] == "changed" {
		t.Error("ListAreas must not expose the internal slice")
	}
}
