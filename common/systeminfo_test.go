package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedSystemInfoReturnsConfiguredValues(t *testing.T) {
	a := assert.New(t)
	f := FixedSystemInfo{
		Memory:           1 << 30,
		CPUs:             4,
		Partitions:       2,
		DefaultFreeSpace: 1 << 20,
		FreeDiskByPath:   map[string]uint64{"/mnt/a": 512},
	}

	mem, err := f.AvailableMemory()
	require.NoError(t, err)
	a.Equal(uint64(1<<30), mem)

	cpus, err := f.CPUCount()
	require.NoError(t, err)
	a.Equal(4, cpus)

	parts, err := f.DiskPartitionCount()
	require.NoError(t, err)
	a.Equal(2, parts)
}

func TestFixedSystemInfoAvailableDiskSpaceFallsBackToDefault(t *testing.T) {
	a := assert.New(t)
	f := FixedSystemInfo{
		DefaultFreeSpace: 99,
		FreeDiskByPath:   map[string]uint64{"/mnt/a": 512},
	}

	got, err := f.AvailableDiskSpace("/mnt/a")
	require.NoError(t, err)
	a.Equal(uint64(512), got)

	got, err = f.AvailableDiskSpace("/mnt/unknown")
	require.NoError(t, err)
	a.Equal(uint64(99), got)
}
