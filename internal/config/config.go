package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	"github.com/roelfdiedericks/xvfbwatch/internal/logging"
	"github.com/roelfdiedericks/xvfbwatch/internal/paths"
)

// FileEnv names the environment variable holding an optional TOML config path.
const FileEnv = "LAUNCHER_CONFIG"

// Config represents the merged launcher configuration.
// Precedence: defaults < TOML file < environment.
type Config struct {
	Xvfb      XvfbConfig   `toml:"xvfb"`
	Chrome    ChromeConfig `toml:"chrome"`
	Log       LogConfig    `toml:"log"`
	StateFile string       `toml:"state_file" envconfig:"LAUNCHER_STATE_FILE"`
}

// XvfbConfig controls the display server and its watchdog.
type XvfbConfig struct {
	Display      string        `toml:"display" envconfig:"DISPLAY"`
	Bin          string        `toml:"bin" envconfig:"XVFB_BIN"`
	Screen       string        `toml:"screen" envconfig:"XVFB_SCREEN"`
	Geometry     string        `toml:"geometry" envconfig:"XVFB_GEOMETRY"`
	PollInterval time.Duration `toml:"poll_interval" envconfig:"XVFB_POLL_INTERVAL"`
	WaitReady    bool          `toml:"wait_ready" envconfig:"XVFB_WAIT_READY"`
	ReadyTimeout time.Duration `toml:"ready_timeout" envconfig:"XVFB_READY_TIMEOUT"`
	Keep         bool          `toml:"keep" envconfig:"XVFB_KEEP"` // leave Xvfb running on exit
}

// ChromeConfig controls browser version detection.
type ChromeConfig struct {
	Bin            string        `toml:"bin" envconfig:"CHROME_BIN"` // empty = look it up
	VersionTimeout time.Duration `toml:"version_timeout" envconfig:"CHROME_VERSION_TIMEOUT"`
}

type LogConfig struct {
	Level string `toml:"level" envconfig:"LAUNCHER_LOG_LEVEL"`
}

// Default returns the built-in configuration: display :1, a 1280x1024
// 16-bit screen, polled once a second.
func Default() *Config {
	return &Config{
		Xvfb: XvfbConfig{
			Display:      ":1",
			Bin:          "Xvfb",
			Screen:       "0",
			Geometry:     "1280x1024x16",
			PollInterval: time.Second,
			ReadyTimeout: 5 * time.Second,
		},
		Chrome: ChromeConfig{
			VersionTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		StateFile: paths.DefaultStatePath(),
	}
}

// Load builds the configuration from defaults, the file named by
// $LAUNCHER_CONFIG (if any) and the environment.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer; a missing file is an error.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		expanded, err := paths.ExpandTilde(path)
		if err != nil {
			return nil, err
		}
		md, err := toml.DecodeFile(expanded, &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", expanded, err)
		}
		for _, key := range md.Undecoded() {
			logging.L_warn("config: unknown key", "key", key.String(), "file", expanded)
		}
		logging.L_debug("config: loaded file", "path", expanded)
	}

	// Boolean defaults are all false, so a false in the file survives the merge.
	if err := mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var geometryRe = regexp.MustCompile(`^[1-9][0-9]*x[1-9][0-9]*(x[1-9][0-9]*)?$`)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := paths.DisplayNumber(c.Xvfb.Display); err != nil {
		return err
	}
	if c.Xvfb.Bin == "" {
		return fmt.Errorf("xvfb bin must not be empty")
	}
	if !geometryRe.MatchString(c.Xvfb.Geometry) {
		return fmt.Errorf("invalid xvfb geometry %q: want WxH or WxHxDEPTH", c.Xvfb.Geometry)
	}
	if c.Xvfb.PollInterval <= 0 {
		return fmt.Errorf("xvfb poll interval must be positive, got %s", c.Xvfb.PollInterval)
	}
	if c.Xvfb.WaitReady && c.Xvfb.ReadyTimeout <= 0 {
		return fmt.Errorf("xvfb ready timeout must be positive, got %s", c.Xvfb.ReadyTimeout)
	}
	if c.Chrome.VersionTimeout <= 0 {
		return fmt.Errorf("chrome version timeout must be positive, got %s", c.Chrome.VersionTimeout)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// LogLevel returns the configured level as a logging constant.
func (c *Config) LogLevel() int {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// XvfbArgs returns the display server argument vector (without the binary).
func (c *Config) XvfbArgs() []string {
	return []string{c.Xvfb.Display, "-screen", c.Xvfb.Screen, c.Xvfb.Geometry}
}
