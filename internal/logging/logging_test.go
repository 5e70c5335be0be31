package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"TRACE", LevelDebug, true},
		{"info", LevelInfo, true},
		{"", LevelInfo, true},
		{" warn ", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"plain message", false},
		{"value is %d", true},
		{"name %s", true},
		{"100%% done", false},
		{"trailing %", false},
	}

	for _, tt := range tests {
		if got := hasFmtVerb(tt.msg); got != tt.want {
			t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestMessageForms(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: LevelDebug, Output: &buf})
	defer Init(nil)

	L_info("started")
	L_info("spawned %d times", 3)
	L_debug("display", "id", ":1")
	L_debug("hidden at warn level")

	out := buf.String()
	for _, want := range []string{"started", "spawned 3 times", "id=:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	SetLevel(LevelWarn)
	L_info("suppressed")
	L_warn("kept")
	out = buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("info message logged at warn level:\n%s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn message missing:\n%s", out)
	}
}
