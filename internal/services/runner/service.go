// Package runner executes a single backup task with its configured strategy.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/fgeck/gobackup-homelab/internal/services/archiver"
	"github.com/fgeck/gobackup-homelab/internal/services/copier"
	"github.com/fgeck/gobackup-homelab/internal/services/differ"
	"github.com/fgeck/gobackup-homelab/internal/services/fsprobe"
	"github.com/ncruces/go-strftime"
	"github.com/rs/zerolog"
)

// Service defines the interface for the task runner.
type Service interface {
	RunTask(ctx context.Context, task models.TaskDescriptor, settings models.Settings) models.TaskResult
}

// Impl implements the runner Service interface.
type Impl struct {
	probeSvc    fsprobe.Service
	differSvc   differ.Service
	copierSvc   copier.Service
	archiverSvc archiver.Service
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		probeSvc:    fsprobe.New(logger),
		differSvc:   differ.New(logger),
		copierSvc:   copier.New(logger),
		archiverSvc: archiver.New(logger),
		logger:      logger,
		now:         time.Now,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	probeSvc fsprobe.Service,
	differSvc differ.Service,
	copierSvc copier.Service,
	archiverSvc archiver.Service,
	now func() time.Time,
) *Impl {
	if now == nil {
		now = time.Now
	}
	return &Impl{
		probeSvc:    probeSvc,
		differSvc:   differSvc,
		copierSvc:   copierSvc,
		archiverSvc: archiverSvc,
		logger:      logger,
		now:         now,
	}
}

// BackupName returns the name of the backup produced by task. Incremental
// backups get no timestamp so every run updates the same mirror.
func BackupName(task models.TaskDescriptor, timestamp string) string {
	sourceDir := filepath.Base(filepath.Clean(task.Source))
	if task.Strategy == models.StrategyIncremental {
		return fmt.Sprintf("%s_%s", task.Name, sourceDir)
	}
	return fmt.Sprintf("%s_%s_%s", task.Name, sourceDir, timestamp)
}

// RunTask executes task and reports the outcome. It never returns an error:
// every failure, including a panic in a strategy, becomes a failed result.
func (s *Impl) RunTask(ctx context.Context, task models.TaskDescriptor, settings models.Settings) (result models.TaskResult) {
	result = models.TaskResult{Task: task}
	logger := s.logger.With().
		Str("task", task.Name).
		Str("strategy", string(task.Strategy)).
		Logger()

	taskStart := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Outcome = models.OutcomeFailed
			result.Duration = time.Since(taskStart)
			result.Error = fmt.Errorf("task panicked: %v", r)
			logger.Error().Err(result.Error).Msg("backup task failed")
		}
	}()

	exists, err := s.probeSvc.SourceExists(task.Source)
	if err != nil {
		return s.fail(logger, result, err)
	}
	if !exists {
		result.Outcome = models.OutcomeSkippedMissingSource
		logger.Warn().
			Str("source", task.Source).
			Msg("source directory does not exist, skipping task")
		return result
	}

	if err := s.probeSvc.EnsureDestinationRoot(settings.Destination); err != nil {
		return s.fail(logger, result, err)
	}

	result.BackupName = BackupName(task, strftime.Format(settings.TimestampFormat, s.now()))

	logger.Info().
		Str("source", task.Source).
		Str("backup", result.BackupName).
		Msg("starting backup task")

	start := time.Now()
	err = s.execute(ctx, task, settings, &result)
	result.Duration = time.Since(start)

	if err != nil {
		return s.fail(logger, result, err)
	}

	result.Outcome = models.OutcomeSuccess
	event := logger.Info().
		Str("destination", result.Destination).
		Dur("duration", result.Duration)
	if task.Strategy == models.StrategyIncremental {
		event = event.Int("files_copied", result.FilesCopied)
	}
	event.Msg("backup task completed")

	return result
}

func (s *Impl) execute(ctx context.Context, task models.TaskDescriptor, settings models.Settings, result *models.TaskResult) error {
	switch task.Strategy {
	case models.StrategyFull:
		result.Destination = filepath.Join(settings.Destination, result.BackupName)
		copyResult, err := s.copierSvc.CopyTree(ctx, task.Source, result.Destination)
		if err != nil {
			return fmt.Errorf("full copy failed: %w", err)
		}
		if copyResult.Error != nil {
			return copyResult.Error
		}
		return nil

	case models.StrategyArchive:
		result.Destination = filepath.Join(settings.Destination, result.BackupName+"."+settings.ArchiveExtension)
		archiveResult, err := s.archiverSvc.Archive(ctx, task.Source, result.Destination, settings.ArchiverPath)
		if err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}
		if archiveResult.Error != nil {
			return archiveResult.Error
		}
		return nil

	case models.StrategyIncremental:
		result.Destination = filepath.Join(settings.Destination, result.BackupName)
		syncResult, err := s.differSvc.SyncTree(ctx, task.Source, result.Destination)
		if err != nil {
			return fmt.Errorf("incremental sync failed: %w", err)
		}
		result.FilesCopied = syncResult.FilesCopied
		if syncResult.Error != nil {
			return syncResult.Error
		}
		return nil

	default:
		return fmt.Errorf("unknown strategy %q", task.Strategy)
	}
}

func (s *Impl) fail(logger zerolog.Logger, result models.TaskResult, err error) models.TaskResult {
	result.Outcome = models.OutcomeFailed
	result.Error = err
	logger.Error().
		Err(err).
		Dur("duration", result.Duration).
		Msg("backup task failed")
	return result
}
