// Package paths provides centralized path resolution for xvfbwatch.
// It imports nothing internal, so every other package may use it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// X11SocketDir is where X servers create their unix sockets.
const X11SocketDir = "/tmp/.X11-unix"

// RuntimeDir returns the xvfbwatch runtime directory.
// Priority: $XDG_RUNTIME_DIR/xvfbwatch > <os temp dir>/xvfbwatch
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "xvfbwatch")
	}
	return filepath.Join(os.TempDir(), "xvfbwatch")
}

// DefaultStatePath returns the default watchdog state file location.
func DefaultStatePath() string {
	return filepath.Join(RuntimeDir(), "state.json")
}

// DisplayNumber parses the display number out of a DISPLAY value.
// Accepts ":1", ":1.0", "host:1" and "unix:1".
func DisplayNumber(display string) (int, error) {
	idx := strings.LastIndex(display, ":")
	if idx < 0 {
		return 0, fmt.Errorf("invalid display %q: missing ':'", display)
	}
	num := display[idx+1:]
	if dot := strings.IndexByte(num, '.'); dot >= 0 {
		num = num[:dot]
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid display %q: bad display number", display)
	}
	return n, nil
}

// DisplaySocket returns the unix socket path of a local X display.
func DisplaySocket(display string) (string, error) {
	n, err := DisplayNumber(display)
	if err != nil {
		return "", err
	}
	return filepath.Join(X11SocketDir, "X"+strconv.Itoa(n)), nil
}

// EnsureDir creates a directory if it doesn't exist.
// Uses 0750 permissions (owner: rwx, group: rx, other: none).
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
