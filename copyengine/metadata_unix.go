//go:build linux || darwin || freebsd || netbsd || solaris

package copyengine

import (
	"os"

	"github.com/pkg/xattr"
)

// metadataXAttrName is the extended attribute the engine round-trips on
// POSIX filesystems that support it.
const metadataXAttrName = "user.ingestengine.sourcemeta"

// restorePlatformAttributes is a no-op on POSIX: mode bits already cover
// the permission model, there are no hidden/system/archive flags.
func restorePlatformAttributes(sourcePath, targetPath string, info os.FileInfo) {}

func restoreExtendedAttributes(sourcePath, targetPath string) {
	data, err := xattr.LGet(sourcePath, metadataXAttrName)
	if err != nil {
		return
	}
	_ = xattr.LSet(targetPath, metadataXAttrName, data)
}
