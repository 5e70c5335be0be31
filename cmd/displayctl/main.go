// Command displayctl inspects a container running the launcher.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/xvfbwatch/internal/config"
	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
)

const version = "0.1.0"

// CLI is the displayctl command tree.
type CLI struct {
	Config string `help:"TOML config file." env:"LAUNCHER_CONFIG" type:"path" placeholder:"FILE"`
	Debug  bool   `help:"Log at debug level."`

	Status        StatusCmd        `cmd:"" help:"Show watchdog and display server state."`
	ChromeVersion ChromeVersionCmd `cmd:"" name:"chrome-version" help:"Print the detected Chrome major version."`
	Version       VersionCmd       `cmd:"" help:"Print the displayctl version."`
}

// Globals are bound into every command's Run.
type Globals struct {
	Config *config.Config
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("displayctl"),
		kong.Description("Inspect the Xvfb watchdog of a running container."),
		kong.UsageOnError(),
	)

	level := LevelWarn
	if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, Prefix: "displayctl", Output: os.Stderr})

	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		L_fatal("displayctl: failed to load config", "error", err)
	}

	err = ctx.Run(&Globals{Config: cfg})
	ctx.FatalIfErrorf(err)
}
