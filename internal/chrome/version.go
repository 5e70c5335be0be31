// Package chrome detects the installed Chrome major version.
package chrome

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
)

// VersionEnv is the variable the detected major version is exported as.
const VersionEnv = "CHROME_VERSION"

// fallbackBinary is tried when nothing is configured and go-rod finds nothing.
const fallbackBinary = "google-chrome"

var digitsRe = regexp.MustCompile(`[0-9]+`)

// ExtractVersion returns the first maximal run of decimal digits in the
// output of a version query, or "" if there is none.
//
//	"Google Chrome 120.0.6099.109" -> "120"
func ExtractVersion(output string) string {
	return digitsRe.FindString(output)
}

// ResolveBinary picks the browser to query: the configured path if set,
// then whatever go-rod's launcher finds on this system, then google-chrome.
func ResolveBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if found, has := launcher.LookPath(); has {
		return found
	}
	return fallbackBinary
}

// Detector runs a version query and extracts the major version.
type Detector struct {
	Binary  string
	Timeout time.Duration

	// run is swapped in tests; nil means exec the binary.
	run func(ctx context.Context, bin string) ([]byte, error)
}

// NewDetector creates a Detector for the given (possibly empty) binary.
func NewDetector(configured string, timeout time.Duration) *Detector {
	return &Detector{
		Binary:  ResolveBinary(configured),
		Timeout: timeout,
	}
}

// Detect queries the browser and returns its major version.
// Failure is never fatal: it is logged and yields "".
func (d *Detector) Detect(ctx context.Context) string {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := d.run
	if run == nil {
		run = queryVersion
	}

	out, err := run(ctx, d.Binary)
	if err != nil {
		L_warn("chrome: version query failed", "bin", d.Binary, "error", err)
		// some builds print the version and still exit non-zero
		if len(out) == 0 {
			return ""
		}
	}

	version := ExtractVersion(string(out))
	if version == "" {
		L_warn("chrome: no version number in query output", "bin", d.Binary, "output", string(out))
		return ""
	}

	L_debug("chrome: detected version", "bin", d.Binary, "version", version)
	return version
}

func queryVersion(ctx context.Context, bin string) ([]byte, error) {
	//nolint:gosec // G204: binary comes from operator configuration
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return out, fmt.Errorf("%s --version: %w", bin, err)
	}
	return out, nil
}

// Export sets CHROME_VERSION for this process and everything it spawns.
// An empty version is exported as an empty value.
func Export(version string) error {
	if err := os.Setenv(VersionEnv, version); err != nil {
		return fmt.Errorf("failed to set %s: %w", VersionEnv, err)
	}
	return nil
}
