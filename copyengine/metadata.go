package copyengine

import "os"

// restoreMetadata copies mtime, mode bits, and (platform-specific) extra
// attributes from source to target. Best effort throughout: every failure
// here is ignored without logging a warning, and none fails the transfer.
func restoreMetadata(sourcePath, targetPath string) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return
	}

	_ = os.Chtimes(targetPath, info.ModTime(), info.ModTime())
	_ = os.Chmod(targetPath, info.Mode().Perm())

	restorePlatformAttributes(sourcePath, targetPath, info)
	restoreExtendedAttributes(sourcePath, targetPath)
}
