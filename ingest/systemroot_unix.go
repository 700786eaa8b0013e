//go:build !windows

package ingest

// systemRoot returns the mountpoint that must never be classified
// removable: the root filesystem the engine's own process runs from.
func systemRoot() string {
	return "/"
}
