// Package scheduler runs backups on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is the work executed on every tick.
type Job func(ctx context.Context)

// Service defines the interface for scheduled execution.
type Service interface {
	Start(ctx context.Context, spec string, job Job) error
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new scheduler service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Start runs job on the standard cron spec until ctx is done, then waits for
// a running job to finish. Ticks that fire while the previous job is still
// running are skipped.
func (s *Impl) Start(ctx context.Context, spec string, job Job) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(schedule, cron.FuncJob(func() { job(ctx) }))
	c.Start()

	s.logger.Info().Str("schedule", spec).Msg("scheduler started")

	<-ctx.Done()

	s.logger.Info().Msg("scheduler stopping, waiting for running backup")
	<-c.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")

	return nil
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
