// Package fsutil provides file copy primitives shared by the copy strategies.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a regular file from src to dst, preserving its permission
// bits and modification time. The content is written to a temporary file in
// the destination directory and renamed into place, so dst is never left
// half-written.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	in, err := os.Open(src) //nolint:gosec // src is a path inside a configured source tree
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	dstDir := filepath.Dir(dst)
	out, err := os.CreateTemp(dstDir, ".gobackup-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dstDir, err)
	}
	tempPath := out.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy content from %s to %s: %w", src, tempPath, err)
	}

	if err := out.Chmod(info.Mode().Perm()); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tempPath, err)
	}

	// Close before Chtimes: flushing may touch the modification time.
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file %s: %w", tempPath, err)
	}

	if err := os.Chtimes(tempPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set timestamps on %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}

	tempPath = ""
	return nil
}
