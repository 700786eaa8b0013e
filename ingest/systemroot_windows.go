//go:build windows

package ingest

import "os"

// systemRoot returns the drive the Windows installation (and this
// process) runs from, e.g. "C:\".
func systemRoot() string {
	root := os.Getenv("SystemDrive")
	if root == "" {
		root = "C:"
	}
	return root + `\`
}
