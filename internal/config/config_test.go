package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/xvfbwatch/internal/logging"
)

// clearEnv unsets every variable the loader reads so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISPLAY", "XVFB_BIN", "XVFB_SCREEN", "XVFB_GEOMETRY", "XVFB_POLL_INTERVAL",
		"XVFB_WAIT_READY", "XVFB_READY_TIMEOUT", "XVFB_KEEP",
		"CHROME_BIN", "CHROME_VERSION_TIMEOUT",
		"LAUNCHER_LOG_LEVEL", "LAUNCHER_STATE_FILE", FileEnv,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launcher.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":1", cfg.Xvfb.Display)
	assert.Equal(t, "Xvfb", cfg.Xvfb.Bin)
	assert.Equal(t, "1280x1024x16", cfg.Xvfb.Geometry)
	assert.Equal(t, time.Second, cfg.Xvfb.PollInterval)
	assert.False(t, cfg.Xvfb.WaitReady)
	assert.False(t, cfg.Xvfb.Keep)
	assert.Equal(t, "", cfg.Chrome.Bin)
	assert.Equal(t, []string{":1", "-screen", "0", "1280x1024x16"}, cfg.XvfbArgs())
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, `
state_file = "/var/run/launcher.json"

[xvfb]
geometry = "1920x1080x24"
poll_interval = "250ms"
display = ":7"

[log]
level = "debug"
`)
	t.Setenv("DISPLAY", ":3")
	t.Setenv("XVFB_KEEP", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// file beats defaults
	assert.Equal(t, "1920x1080x24", cfg.Xvfb.Geometry)
	assert.Equal(t, 250*time.Millisecond, cfg.Xvfb.PollInterval)
	assert.Equal(t, "/var/run/launcher.json", cfg.StateFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	// environment beats file
	assert.Equal(t, ":3", cfg.Xvfb.Display)
	assert.True(t, cfg.Xvfb.Keep)
	// untouched keys keep their defaults
	assert.Equal(t, "Xvfb", cfg.Xvfb.Bin)
	assert.Equal(t, 10*time.Second, cfg.Chrome.VersionTimeout)
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", logging.LevelDebug},
		{"info", logging.LevelInfo},
		{"warn", logging.LevelWarn},
		{"error", logging.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Default()
			cfg.Log.Level = tt.level
			require.NoError(t, cfg.Validate())
			assert.Equal(t, tt.want, cfg.LogLevel())
		})
	}
}

func TestLoadFromEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv(FileEnv, writeFile(t, "[chrome]\nbin = \"/opt/google/chrome/chrome\"\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/google/chrome/chrome", cfg.Chrome.Bin)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{"bad display", map[string]string{"DISPLAY": "nope"}, ""},
		{"bad geometry", map[string]string{"XVFB_GEOMETRY": "big"}, ""},
		{"zero interval", map[string]string{"XVFB_POLL_INTERVAL": "0s"}, ""},
		{"bad duration", map[string]string{"XVFB_POLL_INTERVAL": "soon"}, ""},
		{"bad level", map[string]string{"LAUNCHER_LOG_LEVEL": "chatty"}, ""},
		{"broken toml", nil, "[xvfb\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestAtomicWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	in := map[string]int{"spawns": 3}
	require.NoError(t, AtomicWriteJSON(path, in, 0600))

	var out map[string]int
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0750), dirInfo.Mode().Perm()&0750)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}
