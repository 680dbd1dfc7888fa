package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikewrather/agent-arena/internal/db"
)

var (
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()

		database, err := db.Open(db.Config{
			Path:          cfg.DatabasePath(),
			MaxOpenConns:  cfg.Database.MaxConnections,
			BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		})
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}

		runs, err := db.NewRunRepository(database).List(cmd.Context(), runsStatus, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no runs"))
			return nil
		}

		for _, run := range runs {
			fmt.Fprintf(out, "%s  %-14s  iter %d  %-20s  %s\n",
				run.UpdatedAt.Format("2006-01-02 15:04"),
				statusStyle(run.Status).Render(run.Status),
				run.Iteration,
				run.Workflow,
				dimStyle.Render(run.RunDir))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (running, approved, awaiting_human, aborted, error)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
}
