package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikewrather/agent-arena/internal/workflows"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.toml>",
	Short: "Validate a workflow definition",
	Long: `Validate a workflow definition file, reporting every problem found
rather than stopping at the first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		wf, err := workflows.Load(args[0])
		if err != nil {
			var list *workflows.ErrorList
			if errors.As(err, &list) {
				fmt.Fprintln(out, errStyle.Render(fmt.Sprintf("%s: %d problem(s)", args[0], len(list.Errors))))
				for _, werr := range list.Errors {
					fmt.Fprintf(out, "  - %s\n", werr.Error())
				}
				return &ExitError{Code: 1, Err: err, Printed: true}
			}
			return err
		}

		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s: valid (%d steps, max %d iterations)",
			wf.Name, len(wf.Steps), wf.MaxIterations)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
