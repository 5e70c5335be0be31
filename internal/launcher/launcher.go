// Package launcher hands control to the caller's command.
//
// Go cannot replace its process image without also killing the watchdog
// goroutine, so the command runs as a child with inherited stdio and
// environment, terminating signals are forwarded to it, and its exit status
// is returned for the caller to exit with.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
)

// Exit codes follow the POSIX shell conventions.
const (
	ExitUsage         = 2
	ExitNotExecutable = 126
	ExitNotFound      = 127
	exitSignalBase    = 128
)

// ForwardedSignals are relayed to the child while it runs.
var ForwardedSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGTERM,
	unix.SIGHUP,
	unix.SIGQUIT,
	unix.SIGUSR1,
	unix.SIGUSR2,
}

// ExitError is a launch failure carrying the exit code to report.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Command describes the child to run. Zero values inherit from this process.
type Command struct {
	Argv   []string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Signals to forward; nil means none.
	Signals []os.Signal
}

// Run starts the command, waits for it and returns its exit code.
// A non-nil error means the command never started; the returned code is
// then 127 (not found) or 126 (not executable). Cancelling ctx sends the
// child SIGTERM; Run still waits for it to exit.
func Run(ctx context.Context, c Command) (int, error) {
	if len(c.Argv) == 0 {
		return ExitUsage, &ExitError{Code: ExitUsage, Err: errors.New("no command given")}
	}

	path, err := resolve(c.Argv[0])
	if err != nil {
		return exitCodeFor(err), &ExitError{Code: exitCodeFor(err), Err: err}
	}

	// Built by hand: exec.Command would reject a PATH entry of "." the
	// way a shell does not.
	cmd := &exec.Cmd{
		Path:   path,
		Args:   c.Argv,
		Env:    c.Env,
		Dir:    c.Dir,
		Stdin:  orReader(c.Stdin, os.Stdin),
		Stdout: orWriter(c.Stdout, os.Stdout),
		Stderr: orWriter(c.Stderr, os.Stderr),
	}

	sigCh := make(chan os.Signal, 8)
	if len(c.Signals) > 0 {
		signal.Notify(sigCh, c.Signals...)
		defer signal.Stop(sigCh)
	}

	if err := cmd.Start(); err != nil {
		wrapped := fmt.Errorf("failed to start %s: %w", c.Argv[0], err)
		return ExitNotExecutable, &ExitError{Code: ExitNotExecutable, Err: wrapped}
	}

	L_debug("launcher: command started", "pid", cmd.Process.Pid, "argv", c.Argv)

	waitDone := make(chan struct{})
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		forward(ctx, cmd.Process, sigCh, waitDone)
	}()

	start := time.Now()
	waitErr := cmd.Wait()
	close(waitDone)
	<-forwardDone

	code := exitCode(cmd.ProcessState)
	L_debug("launcher: command exited", "pid", cmd.Process.Pid, "exit_code", code, "elapsed", time.Since(start), "error", waitErr)
	return code, nil
}

// forward relays signals (and ctx cancellation, as SIGTERM) until the
// child has been waited for.
func forward(ctx context.Context, proc *os.Process, sigCh <-chan os.Signal, waitDone <-chan struct{}) {
	cancelled := ctx.Done()
	for {
		select {
		case <-waitDone:
			return
		case sig := <-sigCh:
			L_debug("launcher: forwarding signal", "signal", sig, "pid", proc.Pid)
			_ = proc.Signal(sig)
		case <-cancelled:
			cancelled = nil
			L_debug("launcher: context cancelled, terminating child", "pid", proc.Pid)
			_ = proc.Signal(syscall.SIGTERM)
		}
	}
}

// resolve finds the executable the way a shell would. A PATH entry that
// exists but cannot be executed is reported as fs.ErrPermission, not as
// missing.
func resolve(name string) (string, error) {
	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		return path, nil
	}
	if errors.Is(err, exec.ErrNotFound) && !strings.Contains(name, "/") {
		if found := findOnPath(name); found != "" {
			return "", &exec.Error{Name: found, Err: fs.ErrPermission}
		}
	}
	return path, err
}

// findOnPath returns the first regular file called name in $PATH.
func findOnPath(name string) string {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// exitCodeFor maps a lookup failure: missing is 127, anything else
// (no execute bit, a directory) is 126.
func exitCodeFor(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return ExitNotFound
	}
	return ExitNotExecutable
}

// exitCode mirrors the shell: the exit status, or 128+N for signal N.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return ExitNotExecutable
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return exitSignalBase + int(ws.Signal())
	}
	return state.ExitCode()
}

func orReader(r, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func orWriter(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
