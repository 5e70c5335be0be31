package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"github.com/roelfdiedericks/xvfbwatch/internal/chrome"
	"github.com/roelfdiedericks/xvfbwatch/internal/display"
	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
	"github.com/roelfdiedericks/xvfbwatch/internal/proctable"
)

// StatusCmd reports what the watchdog last wrote and what is alive now.
type StatusCmd struct {
	JSON bool `help:"Print the report as JSON." name:"json"`
}

// statusReport is the JSON shape of "displayctl status --json".
type statusReport struct {
	StateFile      string     `json:"state_file"`
	Display        string     `json:"display"`
	WatchdogPID    int        `json:"watchdog_pid"`
	WatchdogAlive  bool       `json:"watchdog_alive"`
	DisplayPID     int        `json:"display_pid"`
	DisplayAlive   bool       `json:"display_alive"`
	DisplayServers []int      `json:"display_servers"`
	SpawnCount     int        `json:"spawn_count"`
	SpawnFailures  int        `json:"spawn_failures"`
	StartedAt      time.Time  `json:"started_at"`
	LastSpawnAt    *time.Time `json:"last_spawn_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	ChromeVersion  string     `json:"chrome_version"`
}

// probe answers liveness questions about processes on this host.
type probe struct {
	table proctable.Table
	alive func(pid int) bool
}

func newProbe() probe {
	p := probe{table: proctable.Unavailable{}, alive: signalAlive}
	if procTable, err := proctable.NewProcfs(); err == nil {
		p.table = procTable
		p.alive = procTable.Alive
	} else {
		L_debug("displayctl: process table unavailable", "error", err)
	}
	return p
}

// signalAlive probes pid with signal 0; EPERM still means it exists.
func signalAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (c *StatusCmd) Run(g *Globals) error {
	path := g.Config.StateFile
	state, err := display.LoadState(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no state file at %s: is the launcher running?", path)
	}
	if err != nil {
		return err
	}

	report := buildReport(path, state, g.Config.Xvfb.Bin, newProbe())
	if c.JSON {
		return writeJSON(os.Stdout, report)
	}
	writeText(os.Stdout, report, time.Now())
	return nil
}

func buildReport(path string, state *display.State, bin string, p probe) statusReport {
	report := statusReport{
		StateFile:     path,
		Display:       state.Display,
		WatchdogPID:   state.PID,
		WatchdogAlive: state.StoppedAt == nil && p.alive(state.PID),
		DisplayPID:    state.DisplayPID,
		DisplayAlive:  state.DisplayPID > 0 && p.alive(state.DisplayPID),
		SpawnCount:    state.SpawnCount,
		SpawnFailures: state.SpawnFailures,
		StartedAt:     state.StartedAt,
		LastSpawnAt:   state.LastSpawnAt,
		LastError:     state.LastError,
		StoppedAt:     state.StoppedAt,
		ChromeVersion: state.ChromeVersion,
	}

	procs, err := p.table.Find(proctable.CommName(bin))
	if err != nil {
		L_debug("displayctl: cannot list display servers", "error", err)
	}
	report.DisplayServers = make([]int, 0, len(procs))
	for _, proc := range procs {
		report.DisplayServers = append(report.DisplayServers, proc.PID)
	}
	return report
}

func writeJSON(w io.Writer, report statusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeText(w io.Writer, r statusReport, now time.Time) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%-16s %s\n", label+":", value)
	}

	row("state file", r.StateFile)
	row("display", r.Display)
	row("watchdog", pidStatus(r.WatchdogPID, r.WatchdogAlive)+", started "+humanize.RelTime(r.StartedAt, now, "ago", "from now"))
	if r.StoppedAt != nil {
		row("stopped", humanize.RelTime(*r.StoppedAt, now, "ago", "from now"))
	}
	row("display server", pidStatus(r.DisplayPID, r.DisplayAlive))
	if len(r.DisplayServers) > 0 {
		row("running", fmt.Sprint(r.DisplayServers))
	}
	row("spawns", humanize.Comma(int64(r.SpawnCount))+" ("+strconv.Itoa(r.SpawnFailures)+" failed)")
	if r.LastSpawnAt != nil {
		row("last spawn", humanize.RelTime(*r.LastSpawnAt, now, "ago", "from now"))
	} else {
		row("last spawn", "never")
	}
	if r.LastError != "" {
		row("last error", r.LastError)
	}
	chromeVersion := r.ChromeVersion
	if chromeVersion == "" {
		chromeVersion = "(unknown)"
	}
	row(chrome.VersionEnv, chromeVersion)
}

func pidStatus(pid int, alive bool) string {
	switch {
	case pid == 0:
		return "none"
	case alive:
		return fmt.Sprintf("pid %d (alive)", pid)
	default:
		return fmt.Sprintf("pid %d (gone)", pid)
	}
}

// ChromeVersionCmd runs version detection the same way the launcher does.
type ChromeVersionCmd struct{}

func (c *ChromeVersionCmd) Run(g *Globals) error {
	d := chrome.NewDetector(g.Config.Chrome.Bin, g.Config.Chrome.VersionTimeout)
	fmt.Println(d.Detect(context.Background()))
	return nil
}

// VersionCmd prints the displayctl version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("displayctl %s\n", version)
	return nil
}
