package main

import (
	"context"
	"fmt"

	"github.com/fgeck/gobackup-homelab/internal/services/orchestrator"
	"github.com/fgeck/gobackup-homelab/internal/services/scheduler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cronSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the backup tasks on a cron schedule",
	Long: `Keep running and execute all enabled backup tasks on a cron schedule.

The schedule is taken from --cron or from backup_settings.schedule in the
configuration file. Standard five-field expressions and descriptors such as
"@daily" or "@every 6h" are accepted.`,
	SilenceUsage: true,
	RunE:         runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "", "cron expression (overrides backup_settings.schedule)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	spec := cronSpec
	if spec == "" {
		spec = cfg.Settings.Schedule
	}
	if spec == "" {
		return fmt.Errorf("no schedule configured: set backup_settings.schedule or pass --cron")
	}

	ctx, cancel := signalContext()
	defer cancel()

	orchestratorSvc := orchestrator.New(log.Logger)
	schedulerSvc := scheduler.New(log.Logger)

	return schedulerSvc.Start(ctx, spec, func(ctx context.Context) {
		summary, err := orchestratorSvc.Run(ctx, cfg.Tasks, cfg.Settings, "")
		if err != nil {
			log.Error().Err(err).Msg("scheduled backup could not run")
			return
		}
		notify(ctx, cfg, summary)
	})
}
