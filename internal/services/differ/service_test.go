package differ

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func sourceTree(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "docs")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(src, "sub", "deeper", "c.txt"), "c")
	return src
}

func TestSyncTree_FirstRunCopiesEverything(t *testing.T) {
	src := sourceTree(t)
	dst := filepath.Join(t.TempDir(), "docs_docs")

	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), src, dst)

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 3, result.FilesCopied)
	assert.Equal(t, 0, result.FilesSkipped)
	assert.Equal(t, 3, result.DirsCreated) // root, sub, sub/deeper

	content, err := os.ReadFile(filepath.Join(dst, "sub", "deeper", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c", string(content))
}

func TestSyncTree_SecondRunCopiesNothing(t *testing.T) {
	src := sourceTree(t)
	dst := filepath.Join(t.TempDir(), "docs_docs")
	svc := New(testLogger())

	first, err := svc.SyncTree(context.Background(), src, dst)
	require.NoError(t, err)
	require.NoError(t, first.Error)
	require.Equal(t, 3, first.FilesCopied)

	second, err := svc.SyncTree(context.Background(), src, dst)
	require.NoError(t, err)
	require.NoError(t, second.Error)
	assert.Equal(t, 0, second.FilesCopied)
	assert.Equal(t, 3, second.FilesSkipped)
	assert.Equal(t, 0, second.DirsCreated)
}

func TestSyncTree_CopiesOnlyNewFile(t *testing.T) {
	src := sourceTree(t)
	dst := filepath.Join(t.TempDir(), "docs_docs")
	svc := New(testLogger())

	_, err := svc.SyncTree(context.Background(), src, dst)
	require.NoError(t, err)

	writeFile(t, filepath.Join(src, "sub", "new.txt"), "new")

	result, err := svc.SyncTree(context.Background(), src, dst)
	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 1, result.FilesCopied)
	assert.FileExists(t, filepath.Join(dst, "sub", "new.txt"))
}

func TestSyncTree_PresenceOnly(t *testing.T) {
	src := sourceTree(t)
	dst := filepath.Join(t.TempDir(), "docs_docs")
	writeFile(t, filepath.Join(dst, "a.txt"), "stale content")

	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), src, dst)

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.FilesCopied)
	assert.Equal(t, 1, result.FilesSkipped)

	content, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "stale content", string(content))
}

func TestSyncTree_MirrorsEmptyDirectories(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "empty", "nested"), 0o750))
	dst := filepath.Join(t.TempDir(), "dst")

	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), src, dst)

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 0, result.FilesCopied)
	assert.DirExists(t, filepath.Join(dst, "empty", "nested"))
}

func TestSyncTree_PreservesModTime(t *testing.T) {
	src := sourceTree(t)
	modTime := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "a.txt"), modTime, modTime))
	dst := filepath.Join(t.TempDir(), "dst")

	svc := New(testLogger())
	_, err := svc.SyncTree(context.Background(), src, dst)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(modTime))
}

func TestSyncTree_SkipsSymlinks(t *testing.T) {
	src := sourceTree(t)
	if err := os.Symlink(filepath.Join(src, "a.txt"), filepath.Join(src, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "dst")

	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), src, dst)

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 3, result.FilesCopied)
	assert.NoFileExists(t, filepath.Join(dst, "link.txt"))
}

func TestSyncTree_MissingSource(t *testing.T) {
	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "incremental sync")
}

func TestSyncTree_CanceledContext(t *testing.T) {
	src := sourceTree(t)
	dst := filepath.Join(t.TempDir(), "dst")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(testLogger())
	result, err := svc.SyncTree(ctx, src, dst)

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.Equal(t, 0, result.FilesCopied)
}

func TestSyncTree_SymlinkedSourceRoot(t *testing.T) {
	target := sourceTree(t)
	src := filepath.Join(t.TempDir(), "docs-link")
	if err := os.Symlink(target, src); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "docs_docs-link")

	svc := New(testLogger())
	result, err := svc.SyncTree(context.Background(), src, dst)

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, 3, result.FilesCopied)
	assert.FileExists(t, filepath.Join(dst, "a.txt"))
	assert.FileExists(t, filepath.Join(dst, "sub", "deeper", "c.txt"))
}
