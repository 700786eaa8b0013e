// Package copyengine moves one file from a source path to a target path,
// choosing among chunked, mapped, and large-file strategies according to
// the source file's size.
package copyengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/geekfreaks/ingestengine/common"
)

const (
	largeFileThreshold = 100 * 1024 * 1024
	tmpSuffix          = ".tmp"
	progressMinGap     = 100 * time.Millisecond
)

// Options configures one Copy call. BufferSize and ChunkSize drive the
// adaptive strategy split in §4.1; Pacer is optional (nil means
// unlimited).
type Options struct {
	BufferSize            int64
	ChunkSize             int64
	Verify                common.VerificationPolicy
	DeleteSourceOnSuccess bool
	Pacer                 *common.Pacer
	SlicePool             common.ByteSlicePooler
	System                common.SystemInfo
	PauseGate             *common.PauseGate

	// OnProgress is invoked at most once per progressMinGap per Copy call,
	// plus exactly once more at 100% just before completion.
	OnProgress func(Progress)
}

// Progress is the transient sample described in §3.
type Progress struct {
	TransferredBytes         int64
	TotalBytes               int64
	InstantaneousBytesPerSec float64
	SmoothedBytesPerSec      float64
	ETASeconds               float64
}

// Result is returned to the coordinator once Copy returns without error;
// Copy itself reports terminal conditions via (Result{}, *Error).
type Result struct {
	Skipped    bool
	FinalPath  string
	TotalBytes int64
}

// Error carries the stable error-kind tag §7 requires.
type Error struct {
	Kind    common.ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Cause() error  { return e.cause }

func newError(kind common.ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Copy moves sourcePath to targetPath per the adaptive strategy in spec
// §4.1: atomic publish via a ".tmp" sibling, conflict resolution, optional
// verification, and best-effort metadata restore. ctx cancellation is
// observed between chunks/windows with bounded latency.
func Copy(ctx context.Context, sourcePath, targetPath string, opts Options) (Result, *Error) {
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return Result{}, newError(common.EErrorKind.IORead(), err, "source not found or not readable: %v", err)
	}
	size := srcInfo.Size()

	if opts.System != nil {
		if free, ferr := opts.System.AvailableDiskSpace(filepath.Dir(targetPath)); ferr == nil {
			if int64(free) < size {
				return Result{}, newError(common.EErrorKind.DiskSpace(), nil,
					"disk_space: need %d bytes, have %d available", size, free)
			}
		}
	}

	finalTarget, skip, serr := resolveConflict(targetPath, size)
	if serr != nil {
		return Result{}, newError(common.EErrorKind.IOWrite(), serr, "resolving target name: %v", serr)
	}
	if skip {
		return Result{Skipped: true, FinalPath: finalTarget, TotalBytes: size}, nil
	}

	if err := os.MkdirAll(filepath.Dir(finalTarget), common.DEFAULT_FILE_PERM|0111); err != nil {
		return Result{}, newError(common.EErrorKind.IOWrite(), err, "creating target directory: %v", err)
	}

	tmpTarget := finalTarget + tmpSuffix

	bufferSize, chunkSize := adaptSizes(opts, size)

	reporter := newProgressReporter(size, opts.OnProgress)

	var copyErr *Error
	switch {
	case size <= bufferSize:
		copyErr = copyChunked(ctx, sourcePath, tmpTarget, size, chunkSize, opts.Pacer, opts.SlicePool, opts.PauseGate, reporter)
	case size <= largeFileThreshold:
		copyErr = copyMapped(ctx, sourcePath, tmpTarget, size, bufferSize, opts.Pacer, opts.PauseGate, reporter)
	default:
		copyErr = copyLargeFile(ctx, sourcePath, tmpTarget, size, bufferSize, opts.Pacer, opts.PauseGate, reporter)
	}

	if copyErr != nil {
		_ = os.Remove(tmpTarget)
		return Result{}, copyErr
	}

	if err := os.Rename(tmpTarget, finalTarget); err != nil {
		_ = os.Remove(tmpTarget)
		return Result{}, newError(common.EErrorKind.IOWrite(), err, "renaming into place: %v", err)
	}

	if opts.Verify != common.EVerificationPolicy.None() {
		if verr := verify(finalTarget, sourcePath, size, chunkSize, opts.Verify); verr != nil {
			_ = os.Remove(finalTarget)
			return Result{}, newError(common.EErrorKind.VerificationFailed(), verr, "verification_failed")
		}
	}

	restoreMetadata(sourcePath, finalTarget)

	reporter.final()

	if opts.DeleteSourceOnSuccess {
		_ = os.Remove(sourcePath)
	}

	return Result{FinalPath: finalTarget, TotalBytes: size}, nil
}

// adaptSizes applies the design-notes clamp: chunks to [1MiB, 8MiB],
// buffers to [8MiB, 32MiB], only when the caller passed zero (meaning "use
// the adaptive default").
func adaptSizes(opts Options, fileSize int64) (bufferSize, chunkSize int64) {
	bufferSize, chunkSize = opts.BufferSize, opts.ChunkSize
	if bufferSize > 0 && chunkSize > 0 {
		return
	}

	const (
		minChunk  = 1 * 1024 * 1024
		maxChunk  = 8 * 1024 * 1024
		minBuffer = 8 * 1024 * 1024
		maxBuffer = 32 * 1024 * 1024
	)
	var availMem uint64 = 512 * 1024 * 1024
	if opts.System != nil {
		if m, err := opts.System.AvailableMemory(); err == nil && m > 0 {
			availMem = m
		}
	}

	if chunkSize <= 0 {
		chunkSize = clampInt64(int64(float64(availMem)*0.015), minChunk, maxChunk)
	}
	if bufferSize <= 0 {
		bufferSize = clampInt64(int64(float64(availMem)*0.02), minBuffer, maxBuffer)
	}
	return
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveConflict implements §4.1's "atomic publish" conflict rules:
// identical size -> Skipped; otherwise "name (N).ext" disambiguation.
func resolveConflict(targetPath string, sourceSize int64) (finalPath string, skip bool, err error) {
	info, statErr := os.Stat(targetPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return targetPath, false, nil
		}
		return "", false, statErr
	}

	if info.Size() == sourceSize {
		return targetPath, true, nil
	}

	ext := filepath.Ext(targetPath)
	base := strings.TrimSuffix(targetPath, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, false, nil
		}
	}
}
