package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/fgeck/gobackup-homelab/internal/services/runner"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured backup tasks",
	Long:  `List the configured backup tasks with their strategy, run flag and backup name.`,
	RunE:  listTasks,
}

func listTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRATEGY\tRUN\tSOURCE\tBACKUP NAME")
	for _, task := range cfg.Tasks {
		name := runner.BackupName(task, "<timestamp>")
		if task.Strategy == models.StrategyArchive {
			name += "." + cfg.Settings.ArchiveExtension
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", task.Name, task.Strategy, task.Run, task.Source, name)
	}
	return w.Flush()
}
