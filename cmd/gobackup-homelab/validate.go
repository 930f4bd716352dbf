package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Settings:")
	fmt.Printf("  Destination: %s\n", cfg.Settings.Destination)
	fmt.Printf("  Timestamp format: %s\n", cfg.Settings.TimestampFormat)
	fmt.Printf("  Archiver: %s (.%s)\n", cfg.Settings.ArchiverPath, cfg.Settings.ArchiveExtension)
	fmt.Printf("  Default strategy: %s\n", cfg.Settings.DefaultStrategy)
	if cfg.Settings.MaxConcurrent > 0 {
		fmt.Printf("  Max concurrent tasks: %d\n", cfg.Settings.MaxConcurrent)
	} else {
		fmt.Println("  Max concurrent tasks: unlimited")
	}
	if cfg.Settings.Schedule != "" {
		fmt.Printf("  Schedule: %s\n", cfg.Settings.Schedule)
	}
	fmt.Println()
	fmt.Printf("Tasks: %d\n", len(cfg.Tasks))
	enabled := 0
	for _, task := range cfg.Tasks {
		if task.Run {
			enabled++
		}
	}
	fmt.Printf("  Enabled: %d\n", enabled)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	return nil
}
