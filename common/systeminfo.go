package common

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is the port the copy engine uses to size buffers and decide
// whether a transfer has enough room on the destination (AvailableMemory,
// AvailableDiskSpace); no caller in this module reads CPUCount or
// DiskPartitionCount. Ported behind an interface so tests can supply
// a fixed, deterministic fake instead of reading the real host.
type SystemInfo interface {
	// AvailableMemory is the amount of RAM, in bytes, currently free for
	// allocation without swapping.
	AvailableMemory() (uint64, error)
	// CPUCount is the number of logical CPUs visible to the process.
	CPUCount() (int, error)
	// DiskPartitionCount is the number of mounted disk partitions visible
	// to the process.
	DiskPartitionCount() (int, error)
	// AvailableDiskSpace is the free space, in bytes, on the filesystem
	// that contains path.
	AvailableDiskSpace(path string) (uint64, error)
}

// hostSystemInfo is the production SystemInfo, backed by gopsutil.
type hostSystemInfo struct{}

// NewHostSystemInfo returns the SystemInfo implementation that reads the
// real host via gopsutil.
func NewHostSystemInfo() SystemInfo {
	return hostSystemInfo{}
}

func (hostSystemInfo) AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func (hostSystemInfo) CPUCount() (int, error) {
	counts, err := cpu.Counts(true)
	if err != nil {
		return 0, err
	}
	return counts, nil
}

func (hostSystemInfo) DiskPartitionCount() (int, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return 0, err
	}
	return len(partitions), nil
}

func (hostSystemInfo) AvailableDiskSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// FixedSystemInfo is a deterministic SystemInfo for tests.
type FixedSystemInfo struct {
	Memory           uint64
	CPUs             int
	Partitions       int
	FreeDiskByPath   map[string]uint64
	DefaultFreeSpace uint64
}

func (f FixedSystemInfo) AvailableMemory() (uint64, error) { return f.Memory, nil }
func (f FixedSystemInfo) CPUCount() (int, error)           { return f.CPUs, nil }
func (f FixedSystemInfo) DiskPartitionCount() (int, error) { return f.Partitions, nil }

func (f FixedSystemInfo) AvailableDiskSpace(path string) (uint64, error) {
	if v, ok := f.FreeDiskByPath[path]; ok {
		return v, nil
	}
	return f.DefaultFreeSpace, nil
}
