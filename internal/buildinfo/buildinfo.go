// Package buildinfo carries build-time metadata injected via -ldflags,
// separate from user configuration.
package buildinfo

import "fmt"

// Set at build time with
// -ldflags "-X github.com/fieldcut/fieldcut/internal/buildinfo.Version=... -X github.com/fieldcut/fieldcut/internal/buildinfo.BuildDate=...".
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// String returns the version line shown by the --version flag.
func String() string {
	return fmt.Sprintf("%s (built %s)", orUnknown(Version), orUnknown(BuildDate))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
