// Package archiver runs the external archiver that produces compressed backups.
package archiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrArchiverFailed is returned when the archiver exits with a nonzero status.
	ErrArchiverFailed = errors.New("archiver failed")

	// ErrOutputExists is returned when the archive file is already present.
	ErrOutputExists = errors.New("archive already exists")
)

// Service defines the interface for archive operations.
type Service interface {
	Archive(ctx context.Context, sourcePath, outputFile, executable string) (*models.ArchiveResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its separated output and exit code. A
// nonzero exit is reported through exitCode with a nil error; err is only set
// when the process could not be run at all.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return stdout.Bytes(), stderr.Bytes(), -1, err
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new archiver service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new archiver service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// Args returns the archiver arguments that add sourcePath to outputFile.
func Args(sourcePath, outputFile string) []string {
	return []string{"a", outputFile, sourcePath}
}

// Archive runs executable to add sourcePath to a new archive at outputFile.
func (s *Impl) Archive(ctx context.Context, sourcePath, outputFile, executable string) (*models.ArchiveResult, error) {
	start := time.Now()
	result := &models.ArchiveResult{OutputPath: outputFile}

	if _, err := os.Stat(outputFile); err == nil {
		result.ExitCode = -1
		result.Error = fmt.Errorf("%w: %s", ErrOutputExists, outputFile)
		return result, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		result.ExitCode = -1
		result.Error = fmt.Errorf("failed to stat %s: %w", outputFile, err)
		return result, nil
	}

	args := Args(sourcePath, outputFile)
	s.logger.Info().
		Str("executable", executable).
		Strs("args", args).
		Msg("running archiver")

	stdout, stderr, exitCode, err := s.executor.Execute(ctx, executable, args...)
	result.Stdout = string(stdout)
	result.Stderr = strings.TrimSpace(string(stderr))
	result.ExitCode = exitCode
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = fmt.Errorf("failed to run archiver %s: %w", executable, err)
		return result, nil //nolint:nilerr // error is stored in result struct
	}

	if exitCode != 0 {
		result.Error = fmt.Errorf("%w: exit code %d: %s", ErrArchiverFailed, exitCode, result.Stderr)
		return result, nil
	}

	if info, err := os.Stat(outputFile); err == nil {
		result.SizeBytes = info.Size()
	}

	s.logger.Info().
		Str("output", outputFile).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("archive created")

	return result, nil
}
