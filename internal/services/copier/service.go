// Package copier provides full recursive copies of a source tree.
package copier

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

// ErrDestinationExists is returned when the target of a full copy already exists.
var ErrDestinationExists = errors.New("destination already exists")

// Service defines the interface for full copy operations.
type Service interface {
	CopyTree(ctx context.Context, source, destination string) (*models.CopyResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new copier service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// CopyTree copies the whole source tree into destination, which must not
// exist yet. Its parent directory must exist. Symbolic links are recreated
// as links rather than followed.
func (s *Impl) CopyTree(ctx context.Context, source, destination string) (*models.CopyResult, error) {
	s.logger.Info().
		Str("source", source).
		Str("destination", destination).
		Msg("starting full copy")

	start := time.Now()
	result := &models.CopyResult{}

	// WalkDir does not follow a symlinked root, so walk its target instead.
	root, err := filepath.EvalSymlinks(source)
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve source %s: %w", source, err)
		return result, nil
	}
	rootInfo, err := os.Stat(root)
	if err != nil {
		result.Error = fmt.Errorf("failed to stat source %s: %w", source, err)
		return result, nil
	}
	if !rootInfo.IsDir() {
		result.Error = fmt.Errorf("source %s is not a directory", source)
		return result, nil
	}

	// Mkdir, not MkdirAll: it fails when the destination exists, which keeps
	// two runs from writing into the same snapshot.
	if err := os.Mkdir(destination, rootInfo.Mode().Perm()|0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			result.Error = fmt.Errorf("%w: %s", ErrDestinationExists, destination)
		} else {
			result.Error = fmt.Errorf("failed to create destination %s: %w", destination, err)
		}
		return result, nil
	}
	result.DirsCreated++

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
		if rel == "." {
			return nil
		}
		target := filepath.Join(destination, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}
			if err := os.Mkdir(target, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			result.DirsCreated++
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("failed to read link %s: %w", path, err)
			}
			if err := os.Symlink(link, target); err != nil {
				return fmt.Errorf("failed to create link %s: %w", target, err)
			}
			result.LinksCreated++
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}
			if err := fsutil.CopyFile(path, target); err != nil {
				return err
			}
			result.FilesCopied++
			result.BytesCopied += info.Size()
		default:
			s.logger.Debug().Str("path", rel).Str("type", d.Type().String()).Msg("skipping special file")
		}
		return nil
	})

	result.Duration = time.Since(start)

	if walkErr != nil {
		result.Error = fmt.Errorf("full copy of %s failed: %w", source, walkErr)
		return result, nil //nolint:nilerr // error is stored in result struct
	}

	s.logger.Info().
		Int("files_copied", result.FilesCopied).
		Int("dirs_created", result.DirsCreated).
		Int64("bytes_copied", result.BytesCopied).
		Dur("duration", result.Duration).
		Msg("full copy completed")

	return result, nil
}
