//go:build linux

package proctable

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Procfs reads the process table from /proc.
type Procfs struct {
	fs procfs.FS
}

// NewProcfs opens the default /proc mount.
func NewProcfs() (*Procfs, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return &Procfs{fs: fs}, nil
}

// Find returns every live process whose command name equals name.
// Zombies are skipped: an unreaped Xvfb is not a display server.
func (p *Procfs) Find(name string) ([]Process, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var found []Process
	for _, proc := range procs {
		stat, err := proc.Stat()
		if err != nil {
			// exited between listing and reading
			continue
		}
		if stat.Comm != name || dead(stat.State) {
			continue
		}
		found = append(found, Process{
			PID:   stat.PID,
			PPID:  stat.PPID,
			Name:  stat.Comm,
			State: stat.State,
		})
	}
	return found, nil
}

// Alive reports whether pid exists and is not a zombie.
func (p *Procfs) Alive(pid int) bool {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return false
	}
	stat, err := proc.Stat()
	if err != nil {
		return false
	}
	return !dead(stat.State)
}
