package paths

import (
	"path/filepath"
	"testing"
)

func TestDisplayNumber(t *testing.T) {
	tests := []struct {
		display string
		want    int
		wantErr bool
	}{
		{":1", 1, false},
		{":0", 0, false},
		{":99.0", 99, false},
		{"localhost:10", 10, false},
		{"unix:3.1", 3, false},
		{"1", 0, true},
		{":", 0, true},
		{":x", 0, true},
		{":-1", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			got, err := DisplayNumber(tt.display)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DisplayNumber(%q) error = %v, wantErr %v", tt.display, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DisplayNumber(%q) = %d, want %d", tt.display, got, tt.want)
			}
		})
	}
}

func TestDisplaySocket(t *testing.T) {
	got, err := DisplaySocket(":1")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/tmp/.X11-unix/X1"; got != want {
		t.Errorf("DisplaySocket(:1) = %q, want %q", got, want)
	}
}

func TestRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got, want := RuntimeDir(), "/run/user/1000/xvfbwatch"; got != want {
		t.Errorf("RuntimeDir() = %q, want %q", got, want)
	}
	if got, want := DefaultStatePath(), "/run/user/1000/xvfbwatch/state.json"; got != want {
		t.Errorf("DefaultStatePath() = %q, want %q", got, want)
	}
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a", "b", "state.json")
	if err := EnsureParentDir(file); err != nil {
		t.Fatal(err)
	}
	if err := EnsureParentDir(file); err != nil {
		t.Fatalf("second call should be a no-op: %v", err)
	}
}
