package copyengine

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// sampledHash implements the §4.1 sampled_hash policy: a 64-bit
// non-cryptographic hash over three windows (first chunkSize, a
// chunkSize-sized window starting at size/2, and the last chunkSize bytes)
// plus the decimal size string. It is intentionally cheap: the point is to
// catch truncation and gross corruption on large files without reading
// every byte.
func sampledHash(path string, size int64, chunkSize int64) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "opening file for sampled hash")
	}
	defer f.Close()

	h := xxhash.New()
	windows := sampleWindows(size, chunkSize)
	buf := make([]byte, chunkSize)
	for _, w := range windows {
		n, err := f.ReadAt(buf[:w.length], w.offset)
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "reading sample window")
		}
		if _, err := h.Write(buf[:n]); err != nil {
			return 0, err
		}
	}
	if _, err := h.Write([]byte(fmt.Sprintf("%d", size))); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

type window struct {
	offset int64
	length int64
}

// sampleWindows computes the (offset, length) triples for sampledHash,
// clamping to the file bounds and, for small files, dropping a window whose
// offset equals an earlier window's (partial overlaps are kept).
func sampleWindows(size int64, chunkSize int64) []window {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	if size <= 0 {
		return nil
	}
	clampLen := func(offset int64) int64 {
		remaining := size - offset
		if remaining < chunkSize {
			return remaining
		}
		return chunkSize
	}

	first := window{offset: 0, length: clampLen(0)}

	midOffset := size / 2
	if midOffset+chunkSize > size {
		midOffset = size - clampLen(size - chunkSize)
		if midOffset < 0 {
			midOffset = 0
		}
	}
	mid := window{offset: midOffset, length: clampLen(midOffset)}

	lastOffset := size - chunkSize
	if lastOffset < 0 {
		lastOffset = 0
	}
	last := window{offset: lastOffset, length: clampLen(lastOffset)}

	out := []window{first}
	if mid.offset != first.offset {
		out = append(out, mid)
	}
	if last.offset != first.offset && last.offset != mid.offset {
		out = append(out, last)
	}
	return out
}

// fullHash hashes the entire file's contents with the same 64-bit
// non-cryptographic hash used by sampledHash.
func fullHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "opening file for full hash")
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, errors.Wrap(err, "hashing file")
	}
	return h.Sum64(), nil
}
