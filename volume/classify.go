package volume

import (
	"strings"

	"github.com/geekfreaks/ingestengine/common"
)

// networkFilesystems lists the Fstype values gopsutil reports for
// network-backed mounts across platforms.
var networkFilesystems = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smb": true, "smbfs": true,
	"afpfs": true, "fuse.sshfs": true, "9p": true,
}

// removableMountPrefixes are the conventional mount roots removable media
// lands under on POSIX systems when no platform-specific signal is
// available.
var removableMountPrefixes = []string{"/media/", "/run/media/", "/Volumes/"}

// classify applies §4.3's classification rules: the process's own
// system volume is never removable, network filesystems are Remote, and
// everything else falls back to path/option heuristics before defaulting
// to Local.
func classify(raw RawVolume, systemRoot string) common.VolumeClassification {
	if systemRoot != "" && raw.MountPoint == systemRoot {
		return common.EVolumeClassification.Local()
	}

	if networkFilesystems[strings.ToLower(raw.FSType)] {
		return common.EVolumeClassification.Remote()
	}

	if containsOpt(raw.Opts, "removable") || hasRemovablePrefix(raw.MountPoint) {
		return common.EVolumeClassification.Removable()
	}

	return common.EVolumeClassification.Local()
}

func containsOpt(opts []string, want string) bool {
	for _, o := range opts {
		if strings.EqualFold(o, want) {
			return true
		}
	}
	return false
}

func hasRemovablePrefix(mountPoint string) bool {
	for _, prefix := range removableMountPrefixes {
		if strings.HasPrefix(mountPoint, prefix) {
			return true
		}
	}
	return false
}
