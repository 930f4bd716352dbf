// Package fsprobe checks source and destination paths before a backup runs.
package fsprobe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// Service defines the interface for filesystem probing.
type Service interface {
	EnsureDestinationRoot(path string) error
	SourceExists(path string) (bool, error)
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new filesystem prober.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// EnsureDestinationRoot creates path and any missing parents. It is a no-op
// when the directory already exists and fails if path exists as a file.
func (s *Impl) EnsureDestinationRoot(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("destination %s exists and is not a directory", path)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat destination %s: %w", path, err)
	}

	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("created destination directory")
	return nil
}

// SourceExists reports whether path exists. Permission and other stat errors
// are returned so they are not mistaken for a missing source.
func (s *Impl) SourceExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat source %s: %w", path, err)
}
