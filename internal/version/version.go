// Package version provides build version information.
package version

// Version is the current Chorus version. Overridden at build time via
// -ldflags "-X github.com/mosaicdev/chorus/internal/version.Version=...".
var Version = "0.3.0-dev"

// Get returns the version string.
func Get() string {
	return Version
}
