// Package version carries the build metadata stamped in with -ldflags.
package version

import "fmt"

// Overridden at link time, e.g.
// -X auscultify/internal/version.Version=v1.2.0 -X auscultify/internal/version.Commit=$(git rev-parse --short HEAD)
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)

// Info is the build metadata as served on /version
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Get returns the build metadata for service
func Get(service string) Info {
	return Info{Service: service, Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String renders the one-line form printed by `adm version`
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Service, i.Version, i.Commit, i.BuildTime)
}
