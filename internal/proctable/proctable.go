// Package proctable answers "is a process with this name running?".
package proctable

import (
	"errors"
	"path/filepath"
)

// ErrUnavailable is returned where no process table can be read.
var ErrUnavailable = errors.New("process table not available on this platform")

// commLen is the kernel's limit for a process command name (TASK_COMM_LEN-1).
const commLen = 15

// Process is one live entry of the process table.
type Process struct {
	PID   int
	PPID  int
	Name  string // kernel command name, at most 15 bytes
	State string // single-letter state: R, S, D, ...
}

// Table lists live processes by command name.
type Table interface {
	Find(name string) ([]Process, error)
}

// Unavailable is a Table that can never answer.
type Unavailable struct{}

// Find always fails with ErrUnavailable.
func (Unavailable) Find(string) ([]Process, error) {
	return nil, ErrUnavailable
}

// CommName converts a binary name or path into the command name the kernel
// reports for it ("/usr/bin/Xvfb" -> "Xvfb").
func CommName(bin string) string {
	name := filepath.Base(bin)
	if len(name) > commLen {
		name = name[:commLen]
	}
	return name
}

// Running reports whether at least one live process matches bin.
func Running(t Table, bin string) (bool, error) {
	procs, err := t.Find(CommName(bin))
	if err != nil {
		return false, err
	}
	return len(procs) > 0, nil
}

// dead reports states that must not count as running.
func dead(state string) bool {
	return state == "Z" || state == "X" || state == "x"
}
