// Command launcher is a container entrypoint: it exports CHROME_VERSION,
// keeps Xvfb alive on $DISPLAY in the background and runs its arguments
// as the container's real command, exiting with that command's status.
//
//	launcher <command> [args...]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roelfdiedericks/xvfbwatch/internal/chrome"
	"github.com/roelfdiedericks/xvfbwatch/internal/config"
	"github.com/roelfdiedericks/xvfbwatch/internal/display"
	"github.com/roelfdiedericks/xvfbwatch/internal/launcher"
	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
	"github.com/roelfdiedericks/xvfbwatch/internal/paths"
	"github.com/roelfdiedericks/xvfbwatch/internal/proctable"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	Init(&Config{
		Level:      LevelInfo,
		TimeFormat: "15:04:05",
		Prefix:     "launcher",
	})

	cfg, err := config.Load()
	if err != nil {
		L_error("launcher: invalid configuration", "error", err)
		return launcher.ExitUsage
	}
	SetLevel(cfg.LogLevel())

	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "usage: launcher <command> [args...]")
		return launcher.ExitUsage
	}

	// Everything below runs before the child starts, so it sees both.
	if err := os.Setenv("DISPLAY", cfg.Xvfb.Display); err != nil {
		L_warn("launcher: failed to export DISPLAY", "error", err)
	}
	version := chrome.NewDetector(cfg.Chrome.Bin, cfg.Chrome.VersionTimeout).Detect(context.Background())
	if err := chrome.Export(version); err != nil {
		L_warn("launcher: failed to export version", "error", err)
	}
	L_info("launcher: environment ready", "DISPLAY", cfg.Xvfb.Display, chrome.VersionEnv, version)

	var table proctable.Table = proctable.Unavailable{}
	if procTable, err := proctable.NewProcfs(); err == nil {
		table = procTable
	} else {
		L_warn("launcher: process table unavailable, tracking own display server only", "error", err)
	}

	socket, _ := paths.DisplaySocket(cfg.Xvfb.Display) // validated by config
	var wake <-chan struct{}
	if sw, err := display.WatchSocket(socket); err == nil {
		defer sw.Close()
		wake = sw.Removed()
	} else {
		L_debug("launcher: not watching display socket", "error", err)
	}

	wd := display.New(display.Options{
		Display:   cfg.Xvfb.Display,
		Bin:       cfg.Xvfb.Bin,
		Args:      cfg.XvfbArgs(),
		Interval:  cfg.Xvfb.PollInterval,
		StatePath: cfg.StateFile,
		Keep:      cfg.Xvfb.Keep,
		Table:     table,
		Wake:      wake,

		ChromeVersion: version,
	})

	ctx, stopWatchdog := context.WithCancel(context.Background())
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		_ = wd.Run(ctx)
	}()
	defer func() {
		stopWatchdog()
		<-watchdogDone
	}()

	if cfg.Xvfb.WaitReady {
		wd.CheckNow()
		if err := display.WaitReady(ctx, socket, cfg.Xvfb.ReadyTimeout); err != nil {
			L_warn("launcher: display not ready, starting command anyway", "error", err)
		} else {
			L_debug("launcher: display ready", "socket", socket)
		}
	}

	code, err := launcher.Run(context.Background(), launcher.Command{
		Argv:    argv,
		Signals: launcher.ForwardedSignals,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "launcher: %s: %v\n", argv[0], err)
		L_error("launcher: command failed to start", "argv", argv, "exit_code", code, "error", err)
		return code
	}

	L_debug("launcher: command finished", "exit_code", code)
	return code
}
