// Package version exposes build metadata stamped in at link time:
//
//	go build -ldflags "-X leads/internal/version.Version=v1.4.0 \
//	  -X leads/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X leads/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

const unknown = "unknown"

var (
	Version   = unknown
	BuildDate = unknown
	GitCommit = unknown
)

// Info describes the running binary and the process instance.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the build metadata. The instance ID and hostname are
// resolved on first use and then fixed for the life of the process.
func GetInfo() Info {
	once.Do(func() {
		host, err := os.Hostname()
		if err != nil {
			host = unknown
		}
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.New().String(),
			Hostname:   host,
		}
	})
	return info
}

// SemVer parses Version. ok is false for builds stamped with a bare commit
// hash or left unstamped.
func (i Info) SemVer() (v *semver.Version, ok bool) {
	v, err := semver.NewVersion(i.Version)
	if err != nil {
		return nil, false
	}
	return v, true
}

// IsRelease reports whether the binary carries a final (non pre-release)
// semantic version.
func (i Info) IsRelease() bool {
	v, ok := i.SemVer()
	return ok && v.Prerelease() == ""
}

// Release is the identifier reported to error tracking. Semantic versions
// are normalized so "v1.2.0" and "1.2.0" group together.
func (i Info) Release() string {
	if v, ok := i.SemVer(); ok {
		return "leads@" + v.String()
	}
	return "leads@" + i.Version
}

func (i Info) String() string {
	return fmt.Sprintf("leads version %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}
