package copyengine

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/geekfreaks/ingestengine/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRandomFile(t *testing.T, path string, size int) {
	t.Helper()
	buf := make([]byte, size)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestCopySmallFileChunked(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "out", "target.mov")
	writeRandomFile(t, src, 4096)

	res, copyErr := Copy(context.Background(), src, dst, Options{
		BufferSize: 1 << 20,
		ChunkSize:  512,
	})
	require.Nil(t, copyErr)
	assert.False(t, res.Skipped)
	assert.Equal(t, int64(4096), res.TotalBytes)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCopySourceNotFound(t *testing.T) {
	dir := t.TempDir()
	_, copyErr := Copy(context.Background(), filepath.Join(dir, "missing.mov"), filepath.Join(dir, "out.mov"), Options{})
	require.NotNil(t, copyErr)
	assert.Equal(t, common.EErrorKind.IORead(), copyErr.Kind)
}

func TestCopySkipsIdenticalSizeTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "target.mov")
	writeRandomFile(t, src, 2048)
	writeRandomFile(t, dst, 2048)
	originalDst, err := os.ReadFile(dst)
	require.NoError(t, err)

	res, copyErr := Copy(context.Background(), src, dst, Options{BufferSize: 1 << 20, ChunkSize: 512})
	require.Nil(t, copyErr)
	assert.True(t, res.Skipped)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, originalDst, got, "skipped copy must not touch the existing target")
}

func TestCopyDisambiguatesDifferentSizeTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "target.mov")
	writeRandomFile(t, src, 2048)
	writeRandomFile(t, dst, 9999)

	res, copyErr := Copy(context.Background(), src, dst, Options{BufferSize: 1 << 20, ChunkSize: 512})
	require.Nil(t, copyErr)
	assert.False(t, res.Skipped)
	assert.Equal(t, filepath.Join(dir, "target (1).mov"), res.FinalPath)
}

func TestCopyContextCancellationStopsChunkedCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "target.mov")
	writeRandomFile(t, src, 8*1024*1024)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, copyErr := Copy(ctx, src, dst, Options{BufferSize: 16 << 20, ChunkSize: 64 * 1024})
	require.NotNil(t, copyErr)
	assert.Equal(t, common.EErrorKind.Cancelled(), copyErr.Kind)

	_, statErr := os.Stat(dst + tmpSuffix)
	assert.True(t, os.IsNotExist(statErr), "cancelled copy must clean up its .tmp file")
}

func TestCopySizeOnlyVerificationPasses(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "target.mov")
	writeRandomFile(t, src, 4096)

	res, copyErr := Copy(context.Background(), src, dst, Options{
		BufferSize: 1 << 20,
		ChunkSize:  512,
		Verify:     common.EVerificationPolicy.SizeOnly(),
	})
	require.Nil(t, copyErr)
	assert.Equal(t, int64(4096), res.TotalBytes)
}

func TestCopyDeleteSourceOnSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mov")
	dst := filepath.Join(dir, "target.mov")
	writeRandomFile(t, src, 1024)

	_, copyErr := Copy(context.Background(), src, dst, Options{
		BufferSize:            1 << 20,
		ChunkSize:             512,
		DeleteSourceOnSuccess: true,
	})
	require.Nil(t, copyErr)

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestResolveConflictNoExistingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mov")
	final, skip, err := resolveConflict(target, 100)
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, target, final)
}

func TestResolveConflictIdenticalSizeSkips(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mov")
	writeRandomFile(t, target, 100)

	final, skip, err := resolveConflict(target, 100)
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, target, final)
}

func TestResolveConflictDifferentSizeDisambiguates(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "clip.mov")
	writeRandomFile(t, target, 50)

	final, skip, err := resolveConflict(target, 100)
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(dir, "clip (1).mov"), final)
}

func TestAdaptSizesRespectsExplicitValues(t *testing.T) {
	buf, chunk := adaptSizes(Options{BufferSize: 10, ChunkSize: 5}, 1000)
	assert.Equal(t, int64(10), buf)
	assert.Equal(t, int64(5), chunk)
}

func TestAdaptSizesClampsToBounds(t *testing.T) {
	buf, chunk := adaptSizes(Options{}, 1000)
	assert.GreaterOrEqual(t, buf, int64(8*1024*1024))
	assert.LessOrEqual(t, buf, int64(32*1024*1024))
	assert.GreaterOrEqual(t, chunk, int64(1*1024*1024))
	assert.LessOrEqual(t, chunk, int64(8*1024*1024))
}
