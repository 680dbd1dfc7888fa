package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikewrather/agent-arena/internal/state"
)

var statusRunDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted state of a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		store := state.NewStore(statusRunDir)
		rc, err := store.Load()
		if err != nil {
			return err
		}
		if rc == nil {
			fmt.Fprintln(out, dimStyle.Render("no run state in "+statusRunDir))
			return nil
		}

		fmt.Fprintln(out, titleStyle.Render("Run "+rc.RunID))
		fmt.Fprintf(out, "  workflow:      %s\n", rc.Workflow)
		fmt.Fprintf(out, "  iteration:     %d\n", rc.Iteration)
		fmt.Fprintf(out, "  step index:    %d\n", rc.StepIndex)
		if rc.ArtifactPath != "" {
			fmt.Fprintf(out, "  artifact:      %s\n", rc.ArtifactPath)
		}
		fmt.Fprintf(out, "  unadjudicated: %d record(s)\n", len(rc.Unadjudicated))
		fmt.Fprintf(out, "  updated:       %s\n", rc.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

		if rc.AwaitingHuman {
			fmt.Fprintln(out, "  state:         "+warnStyle.Render("awaiting human input"))
			if rc.Pending != nil {
				for _, q := range rc.Pending.Questions {
					fmt.Fprintf(out, "    %s: %s\n", q.ID, q.Text)
				}
			}
		} else {
			fmt.Fprintln(out, "  state:         "+okStyle.Render("resumable"))
		}

		if state.ResolutionExists(statusRunDir) {
			fmt.Fprintln(out, "  resolution:    "+okStyle.Render("terminal marker written"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusRunDir, "run-dir", "d", "", "run directory")
	_ = statusCmd.MarkFlagRequired("run-dir")
}
