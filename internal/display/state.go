package display

import (
	"time"

	"github.com/roelfdiedericks/xvfbwatch/internal/config"
)

// State is the watchdog's bookkeeping, persisted as JSON so displayctl
// can inspect a running container.
type State struct {
	PID           int        `json:"pid"`
	Display       string     `json:"display"`
	DisplayPID    int        `json:"display_pid,omitempty"`
	ChromeVersion string     `json:"chrome_version"`
	StartedAt     time.Time  `json:"started_at"`
	SpawnCount    int        `json:"spawn_count"`
	SpawnFailures int        `json:"spawn_failures"`
	LastSpawnAt   *time.Time `json:"last_spawn_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
}

// LoadState reads a state file written by a watchdog.
func LoadState(path string) (*State, error) {
	var state State
	if err := config.ReadJSON(path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func saveState(path string, state State) error {
	return config.AtomicWriteJSON(path, state, 0600)
}
