// Package orchestrator selects backup tasks and runs them concurrently.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/fgeck/gobackup-homelab/internal/services/runner"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrTaskNotFound is returned when a requested task name matches no configured task.
var ErrTaskNotFound = errors.New("no task found")

// Service defines the interface for the task orchestrator.
type Service interface {
	Run(ctx context.Context, tasks []models.TaskDescriptor, settings models.Settings, taskName string) (*models.RunSummary, error)
}

// Impl implements the orchestrator Service interface.
type Impl struct {
	runnerSvc runner.Service
	logger    zerolog.Logger
}

// New creates a new orchestrator.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		runnerSvc: runner.New(logger),
		logger:    logger,
	}
}

// NewWithRunner creates a new orchestrator with a custom task runner (for testing).
func NewWithRunner(logger zerolog.Logger, runnerSvc runner.Service) *Impl {
	return &Impl{
		runnerSvc: runnerSvc,
		logger:    logger,
	}
}

// Run executes the selected tasks concurrently and waits for all of them.
//
// With a non-empty taskName only the tasks of that name run, whatever their
// run flag says, and an unknown name returns ErrTaskNotFound before anything
// starts. Otherwise every task with run set executes and the rest are
// reported as skipped_disabled. Task failures are reported in the summary,
// never as an error.
func (s *Impl) Run(ctx context.Context, tasks []models.TaskDescriptor, settings models.Settings, taskName string) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	logger := s.logger.With().Str("run_id", summary.RunID).Logger()

	selected, err := s.selectTasks(logger, tasks, taskName)
	if err != nil {
		return nil, err
	}

	summary.Results = make([]models.TaskResult, len(selected))
	var pending []int
	for i, sel := range selected {
		if sel.run {
			pending = append(pending, i)
			continue
		}
		summary.Results[i] = models.TaskResult{Task: sel.task, Outcome: models.OutcomeSkippedDisabled}
		logger.Info().Str("task", sel.task.Name).Msg("skipping task, run is set to false")
	}

	if len(pending) == 0 {
		logger.Warn().Msg("nothing to execute")
		summary.Duration = time.Since(summary.StartTime)
		return summary, nil
	}

	logger.Info().
		Int("tasks", len(pending)).
		Int("max_concurrent", settings.MaxConcurrent).
		Msg("starting backup process")

	// Each goroutine writes only its own slot, so results need no lock.
	var g errgroup.Group
	if settings.MaxConcurrent > 0 {
		g.SetLimit(settings.MaxConcurrent)
	}
	for _, i := range pending {
		g.Go(func() error {
			summary.Results[i] = s.runnerSvc.RunTask(ctx, selected[i].task, settings)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.StartTime)

	logger.Info().
		Int("succeeded", summary.Count(models.OutcomeSuccess)).
		Int("failed", summary.Count(models.OutcomeFailed)).
		Int("skipped_missing_source", summary.Count(models.OutcomeSkippedMissingSource)).
		Int("skipped_disabled", summary.Count(models.OutcomeSkippedDisabled)).
		Dur("duration", summary.Duration).
		Msg("backup process completed")

	return summary, nil
}

type selection struct {
	task models.TaskDescriptor
	run  bool
}

func (s *Impl) selectTasks(logger zerolog.Logger, tasks []models.TaskDescriptor, taskName string) ([]selection, error) {
	if taskName == "" {
		selected := make([]selection, len(tasks))
		for i, task := range tasks {
			selected[i] = selection{task: task, run: task.Run}
		}
		return selected, nil
	}

	var selected []selection
	for _, task := range tasks {
		if task.Name == taskName {
			selected = append(selected, selection{task: task, run: true})
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w with name %q", ErrTaskNotFound, taskName)
	}

	logger.Info().
		Str("task", taskName).
		Msg("task override: running only the named task, ignoring run status")
	return selected, nil
}
