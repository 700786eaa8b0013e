package copyengine

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/geekfreaks/ingestengine/common"
)

// copyChunked handles size <= buffer_size: plain read/write in chunkSize
// chunks, the simplest of the three strategies.
func copyChunked(ctx context.Context, src, dst string, size, chunkSize int64, pacer *common.Pacer, pool common.ByteSlicePooler, gate *common.PauseGate, reporter *progressReporter) *Error {
	in, err := os.Open(src)
	if err != nil {
		return newError(common.EErrorKind.IORead(), err, "opening source: %v", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, common.DEFAULT_FILE_PERM)
	if err != nil {
		return newError(common.EErrorKind.IOWrite(), err, "opening target: %v", err)
	}
	defer out.Close()

	var buf []byte
	if pool != nil {
		buf = pool.RentSlice(uint32(chunkSize))
		defer pool.ReturnSlice(buf)
	} else {
		buf = make([]byte, chunkSize)
	}

	var transferred int64
	for transferred < size {
		if err := checkBoundary(ctx, gate); err != nil {
			return err
		}
		if pacer != nil {
			if perr := pacer.RequestRightToSend(ctx, chunkSize); perr != nil {
				return newError(common.EErrorKind.Cancelled(), perr, "cancelled")
			}
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return newError(common.EErrorKind.IOWrite(), werr, "short write: %v", werr)
			}
			transferred += int64(n)
			reporter.update(transferred, false)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return newError(common.EErrorKind.IORead(), rerr, "reading source: %v", rerr)
		}
	}

	if transferred != size {
		return newError(common.EErrorKind.IOWrite(), nil, "short write: expected %d bytes, wrote %d", size, transferred)
	}
	return nil
}

// copyMapped handles buffer_size < size <= 100MiB: the source is mapped
// read-only and written to the target in bufferSize windows.
func copyMapped(ctx context.Context, src, dst string, size, bufferSize int64, pacer *common.Pacer, gate *common.PauseGate, reporter *progressReporter) *Error {
	return copyWindowed(ctx, src, dst, size, bufferSize, pacer, gate, reporter, false)
}

// copyLargeFile handles size > 100MiB: the same windowed mmap strategy as
// copyMapped, plus an explicit yield between windows so one huge transfer
// cannot starve the scheduler's ability to observe other chunk boundaries
// promptly.
func copyLargeFile(ctx context.Context, src, dst string, size, bufferSize int64, pacer *common.Pacer, gate *common.PauseGate, reporter *progressReporter) *Error {
	return copyWindowed(ctx, src, dst, size, bufferSize, pacer, gate, reporter, true)
}

func copyWindowed(ctx context.Context, src, dst string, size, bufferSize int64, pacer *common.Pacer, gate *common.PauseGate, reporter *progressReporter, yield bool) *Error {
	in, err := os.OpenFile(src, os.O_RDONLY, 0)
	if err != nil {
		return newError(common.EErrorKind.IORead(), err, "opening source: %v", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, common.DEFAULT_FILE_PERM)
	if err != nil {
		return newError(common.EErrorKind.IOWrite(), err, "opening target: %v", err)
	}
	defer out.Close()

	var transferred int64
	for transferred < size {
		if err := checkBoundary(ctx, gate); err != nil {
			return err
		}

		windowLen := bufferSize
		if remaining := size - transferred; remaining < windowLen {
			windowLen = remaining
		}

		mmf, merr := common.NewMMF(in, false, transferred, windowLen)
		if merr != nil {
			return newError(common.EErrorKind.IORead(), merr, "mapping source window: %v", merr)
		}

		if pacer != nil {
			if perr := pacer.RequestRightToSend(ctx, windowLen); perr != nil {
				_ = mmf.Unmap()
				return newError(common.EErrorKind.Cancelled(), perr, "cancelled")
			}
		}

		if mmf.UseMMF() {
			_, werr := out.Write(mmf.Slice())
			mmf.UnuseMMF()
			if werr != nil {
				_ = mmf.Unmap()
				return newError(common.EErrorKind.IOWrite(), werr, "short write: %v", werr)
			}
		}
		_ = mmf.Unmap()

		transferred += windowLen
		reporter.update(transferred, false)

		if yield {
			runtime.Gosched()
		}
	}

	return nil
}

// checkBoundary is called at every chunk/window boundary: it observes
// cancellation first, then blocks while the transfer is paused, matching
// §4.2's "flag observed by the copy engine at chunk boundaries".
func checkBoundary(ctx context.Context, gate *common.PauseGate) *Error {
	select {
	case <-ctx.Done():
		return newError(common.EErrorKind.Cancelled(), ctx.Err(), "cancelled")
	default:
	}
	if gate != nil {
		if err := gate.WaitIfPaused(ctx); err != nil {
			return newError(common.EErrorKind.Cancelled(), err, "cancelled")
		}
	}
	return nil
}
