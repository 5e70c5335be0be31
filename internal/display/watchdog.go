// Package display keeps a virtual X display server alive.
//
// The Watchdog polls the process table once per interval and starts a new
// display server whenever none is running. Check-then-spawn is not atomic,
// so a display server killed externally may be missing for up to one
// interval. Spawn failures are logged and retried on the next tick; they
// never stop the loop.
package display

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
	"github.com/roelfdiedericks/xvfbwatch/internal/proctable"
)

const (
	outputLines  = 50 // display server output kept for the exit log
	stopGrace    = 3 * time.Second
	killGrace    = time.Second
	defaultEvery = time.Second
)

// Options configures a Watchdog.
type Options struct {
	Display   string
	Bin       string   // display server binary, e.g. "Xvfb"
	Args      []string // arguments, e.g. [":1", "-screen", "0", "1280x1024x16"]
	Interval  time.Duration
	StatePath string // "" = don't persist state
	Keep      bool   // leave the display server running when the watchdog stops

	ChromeVersion string // recorded in the state file for displayctl

	Table proctable.Table
	Wake  <-chan struct{} // optional: triggers an immediate check
}

// Watchdog supervises one display server.
type Watchdog struct {
	opts Options

	state   State
	stateMu sync.Mutex

	// Display servers started by this watchdog and not yet reaped
	children   map[*exec.Cmd]struct{}
	childrenMu sync.Mutex

	reapers sync.WaitGroup
	poke    chan struct{}
}

// New creates a watchdog. Table must be non-nil.
func New(opts Options) *Watchdog {
	if opts.Interval <= 0 {
		opts.Interval = defaultEvery
	}
	return &Watchdog{
		opts:     opts,
		children: make(map[*exec.Cmd]struct{}),
		poke:     make(chan struct{}, 1),
	}
}

// CheckNow asks the running loop for an immediate liveness check.
// Calls made while one is already pending are coalesced.
func (w *Watchdog) CheckNow() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled, then stops the display server it
// started (unless Keep is set). It always returns ctx.Err().
func (w *Watchdog) Run(ctx context.Context) error {
	w.stateMu.Lock()
	w.state = State{
		PID:           os.Getpid(),
		Display:       w.opts.Display,
		ChromeVersion: w.opts.ChromeVersion,
		StartedAt:     time.Now(),
	}
	w.stateMu.Unlock()
	w.saveState()

	L_info("display: watchdog started",
		"display", w.opts.Display,
		"bin", w.opts.Bin,
		"interval", w.opts.Interval,
	)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return ctx.Err()
		case <-ticker.C:
		case <-w.opts.Wake:
			L_debug("display: woken early")
		case <-w.poke:
		}

		// A cancel that raced the tick wins.
		if ctx.Err() != nil {
			continue
		}
		w.check()
	}
}

// State returns a snapshot of the watchdog's bookkeeping.
func (w *Watchdog) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

// check spawns a display server if none is running.
func (w *Watchdog) check() {
	running, err := proctable.Running(w.opts.Table, w.opts.Bin)
	if err != nil {
		// Without a process table, trust our own child.
		running = w.ownAlive()
		L_debug("display: process table query failed", "error", err, "own_alive", running)
	}
	if running {
		return
	}
	w.spawn()
}

// ownAlive reports whether a display server we started is still unreaped.
func (w *Watchdog) ownAlive() bool {
	w.childrenMu.Lock()
	defer w.childrenMu.Unlock()
	return len(w.children) > 0
}

// spawn starts the display server without waiting for it.
func (w *Watchdog) spawn() {
	cmd := exec.Command(w.opts.Bin, w.opts.Args...) //nolint:gosec // G204: binary from operator configuration

	// A kept server outlives us, so it must not write into our pipes.
	var stdout, stderr io.ReadCloser
	if !w.opts.Keep {
		stdout, _ = cmd.StdoutPipe()
		stderr, _ = cmd.StderrPipe()
	}

	if err := cmd.Start(); err != nil {
		w.stateMu.Lock()
		w.state.SpawnFailures++
		w.state.LastError = err.Error()
		w.stateMu.Unlock()
		w.saveState()
		L_debug("display: spawn failed, retrying next tick", "bin", w.opts.Bin, "error", err)
		return
	}

	now := time.Now()
	w.childrenMu.Lock()
	w.children[cmd] = struct{}{}
	w.childrenMu.Unlock()

	w.stateMu.Lock()
	w.state.DisplayPID = cmd.Process.Pid
	w.state.SpawnCount++
	w.state.LastSpawnAt = &now
	w.state.LastError = ""
	spawns := w.state.SpawnCount
	w.stateMu.Unlock()
	w.saveState()

	L_info("display: server started", "pid", cmd.Process.Pid, "display", w.opts.Display, "spawns", spawns)

	w.reapers.Add(1)
	go w.reap(cmd, stdout, stderr)
}

// reap collects the display server's output and exit status so it never
// lingers as a zombie.
func (w *Watchdog) reap(cmd *exec.Cmd, stdout, stderr io.Reader) {
	defer w.reapers.Done()

	output := newOutputTail(outputLines)
	output.capture(stdout, stderr)

	err := cmd.Wait()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	w.childrenMu.Lock()
	delete(w.children, cmd)
	w.childrenMu.Unlock()

	w.stateMu.Lock()
	if w.state.DisplayPID == cmd.Process.Pid {
		w.state.DisplayPID = 0
	}
	w.stateMu.Unlock()
	w.saveState()

	L_info("display: server exited", "pid", cmd.Process.Pid, "exit_code", exitCode, "error", err)
	for _, line := range output.lines() {
		L_debug("display: xvfb output", "pid", cmd.Process.Pid, "line", line)
	}
}

// shutdown terminates our display server (unless kept) and waits for it.
func (w *Watchdog) shutdown() {
	defer func() {
		now := time.Now()
		w.stateMu.Lock()
		w.state.StoppedAt = &now
		w.stateMu.Unlock()
		w.saveState()
		L_info("display: watchdog stopped")
	}()

	if w.opts.Keep {
		L_debug("display: leaving display server running")
		return
	}

	for _, cmd := range w.liveChildren() {
		L_debug("display: sending SIGTERM to display server", "pid", cmd.Process.Pid)
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			L_warn("display: failed to signal display server", "pid", cmd.Process.Pid, "error", err)
		}
	}

	if w.waitReapers(stopGrace) {
		return
	}

	for _, cmd := range w.liveChildren() {
		L_warn("display: display server ignored SIGTERM, killing", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
	}
	if !w.waitReapers(killGrace) {
		L_warn("display: display server still not reaped")
	}
}

func (w *Watchdog) liveChildren() []*exec.Cmd {
	w.childrenMu.Lock()
	defer w.childrenMu.Unlock()

	cmds := make([]*exec.Cmd, 0, len(w.children))
	for cmd := range w.children {
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (w *Watchdog) waitReapers(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		w.reapers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// saveState persists state if a state path is configured
func (w *Watchdog) saveState() {
	if w.opts.StatePath == "" {
		return
	}
	if err := saveState(w.opts.StatePath, w.State()); err != nil {
		L_debug("display: failed to write state", "path", w.opts.StatePath, "error", err)
	}
}
