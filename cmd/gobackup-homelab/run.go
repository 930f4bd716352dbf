package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/gobackup-homelab/internal/config"
	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/fgeck/gobackup-homelab/internal/services/orchestrator"
	"github.com/fgeck/gobackup-homelab/internal/services/telegram"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// errTasksFailed makes the process exit nonzero when any task failed.
var errTasksFailed = errors.New("one or more backup tasks failed")

var runCmd = &cobra.Command{
	Use:   "run [task-name]",
	Short: "Execute the configured backup tasks",
	Long: `Execute the backup tasks from the configuration file.

Without a task name every task with "run: true" (the default) is executed.
With a task name only that task runs, even if its run flag is false.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	var taskName string
	if len(args) > 0 {
		taskName = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	orchestratorSvc := orchestrator.New(log.Logger)
	summary, err := orchestratorSvc.Run(ctx, cfg.Tasks, cfg.Settings, taskName)
	if err != nil {
		log.Error().Err(err).Msg("cannot run backup")
		return err
	}

	notify(ctx, cfg, summary)

	if summary.HasFailures() {
		log.Error().Int("failed", len(summary.Failed())).Msg("backup finished with failures")
		return errTasksFailed
	}

	log.Info().Msg("backup completed successfully")
	return nil
}

// loadConfig reads and validates the configuration file.
func loadConfig() (*models.BackupConfig, error) {
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	log.Info().
		Str("config", configFile).
		Str("destination", cfg.Settings.Destination).
		Int("tasks", len(cfg.Tasks)).
		Msg("configuration loaded")

	return cfg, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// notify sends the run summary when Telegram is configured. Failures are
// logged and never change the run outcome.
func notify(ctx context.Context, cfg *models.BackupConfig, summary *models.RunSummary) {
	if cfg.Telegram == nil {
		return
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	// The run context may already be canceled by a signal; the summary is
	// still worth sending.
	result, err := telegram.New(log.Logger).SendSummary(context.WithoutCancel(ctx), *cfg.Telegram, host, *summary)
	if err != nil {
		log.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("failed to send Telegram notification")
	}
}
