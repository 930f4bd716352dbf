// Package differ provides incremental, presence-based directory sync.
package differ

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/fsutil"
	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for incremental sync operations.
type Service interface {
	SyncTree(ctx context.Context, source, destination string) (*models.SyncResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new differ service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// SyncTree mirrors the directory structure of source under destination and
// copies every regular file that does not yet exist at the same relative
// path. Files already present are never compared or overwritten.
func (s *Impl) SyncTree(ctx context.Context, source, destination string) (*models.SyncResult, error) {
	s.logger.Info().
		Str("source", source).
		Str("destination", destination).
		Msg("starting incremental sync")

	start := time.Now()
	result := &models.SyncResult{}

	// WalkDir does not follow a symlinked root, so walk its target instead.
	root, err := filepath.EvalSymlinks(source)
	if err != nil {
		result.Duration = time.Since(start)
		result.Error = fmt.Errorf("incremental sync of %s failed: %w", source, err)
		return result, nil
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		target := filepath.Join(destination, rel)

		switch {
		case d.IsDir():
			return s.ensureDir(path, target, result)
		case d.Type().IsRegular():
			return s.syncFile(path, target, rel, result)
		default:
			s.logger.Debug().Str("path", rel).Str("type", d.Type().String()).Msg("skipping non-regular file")
			return nil
		}
	})

	result.Duration = time.Since(start)

	if walkErr != nil {
		result.Error = fmt.Errorf("incremental sync of %s failed: %w", source, walkErr)
		return result, nil //nolint:nilerr // error is stored in result struct
	}

	s.logger.Info().
		Int("files_copied", result.FilesCopied).
		Int("files_skipped", result.FilesSkipped).
		Int("dirs_created", result.DirsCreated).
		Dur("duration", result.Duration).
		Msg("incremental sync completed")

	return result, nil
}

func (s *Impl) ensureDir(src, target string, result *models.SyncResult) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", target, err)
	}

	result.DirsCreated++
	return nil
}

func (s *Impl) syncFile(src, target, rel string, result *models.SyncResult) error {
	_, err := os.Lstat(target)
	if err == nil {
		result.FilesSkipped++
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", target, err)
	}

	if err := fsutil.CopyFile(src, target); err != nil {
		return err
	}

	s.logger.Debug().Str("path", rel).Msg("copied")
	result.FilesCopied++
	return nil
}
