// Package volume implements the volume monitor of §4.3: it polls the
// platform's volume list, diffs it against the previous poll, classifies
// new arrivals, and applies the shell's exclusion policy.
package volume

import "github.com/geekfreaks/ingestengine/common"

// Volume is the identity/attributes pair from §3: a platform-stable
// drive identifier, an optional label, a classification, and whether the
// shell has excluded it from ingestion.
type Volume struct {
	ID             string
	Label          string
	MountPoint     string
	Classification common.VolumeClassification
	Excluded       bool
}

// RawVolume is what a PlatformPort reports before classification. ID is
// the platform-stable identifier §3 requires: a drive letter on
// Windows, a mount path elsewhere.
type RawVolume struct {
	ID         string
	Label      string
	MountPoint string
	FSType     string
	Opts       []string
}

// PlatformPort abstracts the platform volume/partition enumeration call so
// the monitor's polling and diffing logic is independent of gopsutil (and
// testable with a fake).
type PlatformPort interface {
	ListVolumes() ([]RawVolume, error)
}
