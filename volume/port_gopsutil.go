package volume

import "github.com/shirou/gopsutil/v3/disk"

// gopsutilPort is the production PlatformPort, backed by gopsutil's disk
// package the same way common.SystemInfo leans on gopsutil/v3 for host
// facts elsewhere in this module.
type gopsutilPort struct{}

// NewGopsutilPort returns the PlatformPort used outside of tests.
func NewGopsutilPort() PlatformPort { return gopsutilPort{} }

func (gopsutilPort) ListVolumes() ([]RawVolume, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	out := make([]RawVolume, 0, len(partitions))
	for _, p := range partitions {
		out = append(out, RawVolume{
			ID:         volumeID(p),
			Label:      p.Mountpoint,
			MountPoint: p.Mountpoint,
			FSType:     p.Fstype,
			Opts:       p.Opts,
		})
	}
	return out, nil
}

// volumeID picks the platform-stable identifier §3 wants: the mountpoint,
// which is the mount path on POSIX and the drive letter on Windows. The
// device node is used only when a partition reports no mountpoint.
func volumeID(p disk.PartitionStat) string {
	if p.Mountpoint != "" {
		return p.Mountpoint
	}
	return p.Device
}
