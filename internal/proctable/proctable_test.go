package proctable

import (
	"errors"
	"testing"
)

type fakeTable struct {
	procs map[string][]Process
	err   error
}

func (f fakeTable) Find(name string) ([]Process, error) {
	return f.procs[name], f.err
}

func TestCommName(t *testing.T) {
	tests := []struct {
		bin  string
		want string
	}{
		{"Xvfb", "Xvfb"},
		{"/usr/bin/Xvfb", "Xvfb"},
		{"/opt/a-very-long-binary-name", "a-very-long-bin"},
	}

	for _, tt := range tests {
		if got := CommName(tt.bin); got != tt.want {
			t.Errorf("CommName(%q) = %q, want %q", tt.bin, got, tt.want)
		}
	}
}

func TestRunning(t *testing.T) {
	table := fakeTable{procs: map[string][]Process{
		"Xvfb": {{PID: 42, Name: "Xvfb", State: "S"}},
	}}

	ok, err := Running(table, "/usr/bin/Xvfb")
	if err != nil || !ok {
		t.Errorf("Running(Xvfb) = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = Running(table, "Xvnc")
	if err != nil || ok {
		t.Errorf("Running(Xvnc) = (%v, %v), want (false, nil)", ok, err)
	}

	boom := errors.New("boom")
	_, err = Running(fakeTable{err: boom}, "Xvfb")
	if !errors.Is(err, boom) {
		t.Errorf("Running error = %v, want %v", err, boom)
	}
}

func TestDead(t *testing.T) {
	for _, state := range []string{"Z", "X", "x"} {
		if !dead(state) {
			t.Errorf("dead(%q) = false, want true", state)
		}
	}
	for _, state := range []string{"R", "S", "D", "T", "I"} {
		if dead(state) {
			t.Errorf("dead(%q) = true, want false", state)
		}
	}
}
