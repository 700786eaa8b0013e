//go:build windows

package copyengine

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/geekfreaks/ingestengine/common"
)

// preservedAttributeBits are the attribute flags §4.1 names
// explicitly: hidden, system, archive, compressed. Everything else
// (read-only, directory, ...) is left to the OS defaults for a freshly
// created file.
const preservedAttributeBits = windows.FILE_ATTRIBUTE_HIDDEN |
	windows.FILE_ATTRIBUTE_SYSTEM |
	windows.FILE_ATTRIBUTE_ARCHIVE |
	windows.FILE_ATTRIBUTE_COMPRESSED

// restorePlatformAttributes best-effort copies the Windows hidden/system/
// archive/compressed bits from source to target.
func restorePlatformAttributes(sourcePath, targetPath string, info os.FileInfo) {
	sysAttrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return
	}

	srcFlags := uint32(sysAttrs.FileAttributes)
	if !common.BitflagsContainAny(srcFlags, uint32(preservedAttributeBits)) {
		return
	}
	preserved := srcFlags & uint32(preservedAttributeBits)

	targetPtr, err := windows.UTF16PtrFromString(targetPath)
	if err != nil {
		return
	}
	currentAttrs, err := windows.GetFileAttributes(targetPtr)
	if err != nil {
		return
	}

	newAttrs := common.BitflagsAdd(currentAttrs, preserved)
	_ = windows.SetFileAttributes(targetPtr, newAttrs)
}

// restoreExtendedAttributes is a no-op on Windows: the pkg/xattr package
// does not support this platform, and the attribute bits above already
// cover the metadata §4.1 asks Windows builds to preserve.
func restoreExtendedAttributes(sourcePath, targetPath string) {}
