// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/ncruces/go-strftime"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Defaults applied when a setting is absent.
const (
	DefaultConfigFile       = "backup_config.yml"
	DefaultDestination      = "./backups"
	DefaultTimestampFormat  = "%Y%m%d_%H%M%S"
	DefaultArchiverPath     = "7z"
	DefaultArchiveExtension = "7z"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// rawTask mirrors one entry of the tasks list. Run is a pointer so an absent
// flag can default to true.
type rawTask struct {
	Source string `mapstructure:"source"`
	Name   string `mapstructure:"name"`
	Type   string `mapstructure:"type"`
	Run    *bool  `mapstructure:"run"`
}

func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{}

	// Parse global settings.
	cfg.Settings = models.Settings{
		Destination:      p.expandEnv(p.v.GetString("backup_settings.destination")),
		TimestampFormat:  p.v.GetString("backup_settings.timestamp_format"),
		ArchiverPath:     p.expandEnv(p.v.GetString("backup_settings.seven_zip_path")),
		ArchiveExtension: strings.TrimPrefix(p.v.GetString("backup_settings.archive_extension"), "."),
		MaxConcurrent:    p.v.GetInt("backup_settings.max_concurrent"),
		Schedule:         p.v.GetString("backup_settings.schedule"),
	}

	if cfg.Settings.Destination == "" {
		cfg.Settings.Destination = DefaultDestination
	}
	if cfg.Settings.TimestampFormat == "" {
		cfg.Settings.TimestampFormat = DefaultTimestampFormat
	}
	if cfg.Settings.ArchiverPath == "" {
		cfg.Settings.ArchiverPath = DefaultArchiverPath
	}
	if cfg.Settings.ArchiveExtension == "" {
		cfg.Settings.ArchiveExtension = DefaultArchiveExtension
	}
	if cfg.Settings.MaxConcurrent < 0 {
		return nil, fmt.Errorf("backup_settings.max_concurrent must not be negative")
	}

	// The legacy zip switch selects the strategy for tasks without a type.
	cfg.Settings.DefaultStrategy = models.StrategyFull
	if p.v.GetBool("backup_settings.zip") {
		cfg.Settings.DefaultStrategy = models.StrategyArchive
	}

	// Parse tasks.
	var raw []rawTask
	if err := p.v.UnmarshalKey("tasks", &raw); err != nil {
		return nil, fmt.Errorf("parsing tasks: %w", err)
	}

	for i, rt := range raw {
		task, err := buildTask(rt, cfg.Settings.DefaultStrategy)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		cfg.Tasks = append(cfg.Tasks, task)
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildTask(rt rawTask, defaultStrategy models.Strategy) (models.TaskDescriptor, error) {
	source := os.ExpandEnv(rt.Source)
	if source == "" {
		return models.TaskDescriptor{}, fmt.Errorf("source is required")
	}

	task := models.TaskDescriptor{
		Name:     rt.Name,
		Source:   source,
		Strategy: models.Strategy(strings.ToLower(rt.Type)),
		Run:      true,
	}

	if task.Name == "" {
		task.Name = filepath.Base(filepath.Clean(source))
	}
	if task.Strategy == "" {
		task.Strategy = defaultStrategy
	}
	if !task.Strategy.Valid() {
		return models.TaskDescriptor{}, fmt.Errorf("type must be one of: full, archive, incremental (got %q)", rt.Type)
	}
	if rt.Run != nil {
		task.Run = *rt.Run
	}

	return task, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Settings.Destination == "" {
		return fmt.Errorf("backup_settings.destination is required")
	}

	if cfg.Settings.ArchiverPath == "" {
		return fmt.Errorf("backup_settings.seven_zip_path is required")
	}

	if err := validateTimestampFormat(cfg.Settings.TimestampFormat); err != nil {
		return err
	}

	if cfg.Settings.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Settings.Schedule); err != nil {
			return fmt.Errorf("backup_settings.schedule is invalid: %w", err)
		}
	}

	for i, task := range cfg.Tasks {
		if task.Source == "" {
			return fmt.Errorf("tasks[%d]: source is required", i)
		}
		if base := filepath.Base(filepath.Clean(task.Source)); !validPathElement(base) {
			return fmt.Errorf("tasks[%d]: source %q has no usable directory name", i, task.Source)
		}
		if task.Name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if !validPathElement(task.Name) {
			return fmt.Errorf("tasks[%d]: name %q must not contain path separators or be \".\" or \"..\"", i, task.Name)
		}
		if !task.Strategy.Valid() {
			return fmt.Errorf("tasks[%d]: unknown type %q", i, task.Strategy)
		}
	}

	return nil
}

// validateTimestampFormat rejects formats that render to an empty string or
// would escape the destination root when used in a file name.
func validateTimestampFormat(format string) error {
	if format == "" {
		return fmt.Errorf("backup_settings.timestamp_format is required")
	}

	rendered := strftime.Format(format, time.Now())
	if rendered == "" {
		return fmt.Errorf("backup_settings.timestamp_format renders to an empty string")
	}
	if strings.ContainsAny(rendered, `/\`) {
		return fmt.Errorf("backup_settings.timestamp_format must not produce path separators (got %q)", rendered)
	}

	return nil
}

// validPathElement reports whether s can be used as a single file name
// directly below the destination root.
func validPathElement(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
