package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikewrather/agent-arena/internal/agents"
	"github.com/mikewrather/agent-arena/internal/constraints"
	"github.com/mikewrather/agent-arena/internal/db"
	"github.com/mikewrather/agent-arena/internal/engine"
	"github.com/mikewrather/agent-arena/internal/logging"
	"github.com/mikewrather/agent-arena/internal/state"
	"github.com/mikewrather/agent-arena/internal/workflows"
)

var (
	runWorkflowFile   string
	runDirFlag        string
	runConstraintsDir string
	runMaxIterations  int
	runDryRun         bool
	runResetHITL      bool
	runNoJournal      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start or resume a workflow run",
	Long: `Start a workflow run, or resume one from its run directory.

A fresh run directory starts at iteration 1; an existing state.json resumes
exactly where the run left off, including awaiting-human suspensions.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runWorkflowFile, "workflow", "w", "", "workflow definition file (TOML)")
	runCmd.Flags().StringVarP(&runDirFlag, "run-dir", "d", "", "run directory (default: <runs_dir>/<workflow name>)")
	runCmd.Flags().StringVar(&runConstraintsDir, "constraints", "", "constraint definition directory (default: <workflow dir>/constraints)")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "override the workflow's iteration cap")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the step plan without invoking agents")
	runCmd.Flags().BoolVar(&runResetHITL, "reset-hitl", false, "discard persisted awaiting-human state before starting")
	runCmd.Flags().BoolVar(&runNoJournal, "no-journal", false, "skip the SQLite run journal")
	_ = runCmd.MarkFlagRequired("workflow")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	wf, err := workflows.Load(runWorkflowFile)
	if err != nil {
		return err
	}

	constraintsDir := runConstraintsDir
	if constraintsDir == "" {
		constraintsDir = cfg.Engine.ConstraintsDir
	}
	if constraintsDir == "" {
		constraintsDir = filepath.Join(filepath.Dir(runWorkflowFile), "constraints")
	}
	cs, err := constraints.LoadDir(constraintsDir)
	if err != nil {
		return err
	}

	if err := applyDefaultAgents(wf, cfg.Engine.DefaultAgent); err != nil {
		return err
	}

	if runDryRun {
		printPlan(cmd, wf, cs)
		return nil
	}

	profiles := cfg.Profiles()
	for i, step := range wf.Steps {
		if _, ok := profiles[step.Agent]; !ok {
			return fmt.Errorf("step %s references unknown agent %q", wf.EffectiveName(i), step.Agent)
		}
	}

	runDir := runDirFlag
	if runDir == "" {
		runDir = filepath.Join(cfg.RunsDir(), wf.Name)
	}

	workspace, err := state.NewRunDir(runDir)
	if err != nil {
		return err
	}

	var journal engine.Journal
	if !runNoJournal && !cfg.Database.Disabled {
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
		journal = db.NewJournal(database, runDir, wf.Name)
	}

	runner := agents.NewRunner(profiles)
	eng, err := engine.New(engine.Config{
		Workflow:      wf,
		Constraints:   cs,
		Generator:     runner,
		Critic:        runner,
		Adjudicator:   runner,
		Refiner:       runner,
		Store:         state.NewStore(runDir),
		Workspace:     workspace,
		HITL:          state.NewHITLChannel(runDir),
		Journal:       journal,
		Logger:        logging.Component("engine"),
		MaxIterations: runMaxIterations,
		ResetHITL:     runResetHITL,
	})
	if err != nil {
		return err
	}

	outcome := eng.Run(cmd.Context())
	return reportOutcome(outcome, runDir)
}

// applyDefaultAgents fills empty step agents from the configured default.
func applyDefaultAgents(wf *workflows.Workflow, defaultAgent string) error {
	for i := range wf.Steps {
		if wf.Steps[i].Agent != "" {
			continue
		}
		if defaultAgent == "" {
			return fmt.Errorf("step %s names no agent and engine.default_agent is not set", wf.EffectiveName(i))
		}
		wf.Steps[i].Agent = defaultAgent
	}
	return nil
}

func printPlan(cmd *cobra.Command, wf *workflows.Workflow, cs []constraints.Constraint) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Workflow: %s (max %d iterations)", wf.Name, wf.MaxIterations)))
	if wf.Goal != "" {
		fmt.Fprintf(out, "Goal: %s\n", firstLine(wf.Goal))
	}
	fmt.Fprintln(out, "Steps:")

	for i, step := range wf.Steps {
		name := wf.EffectiveName(i)
		var notes []string
		notes = append(notes, "agent="+step.Agent)
		switch step.Kind {
		case workflows.StepCritique:
			selected := constraints.SelectForStep(step, cs)
			ids := make([]string, 0, len(selected))
			for _, c := range selected {
				ids = append(ids, c.ID)
			}
			notes = append(notes,
				string(step.Execution),
				"order="+string(step.Order),
				"constraints=["+strings.Join(ids, ", ")+"]")
		case workflows.StepAdjudicate:
			notes = append(notes, "scope="+string(step.Scope))
		case workflows.StepRefine:
			notes = append(notes, "mode="+string(step.Mode))
			if step.LoopTo != "" {
				notes = append(notes, "loop_to="+step.LoopTo)
			}
		}
		fmt.Fprintf(out, "  %d. %-11s %-16s %s\n", i+1, step.Kind, name, dimStyle.Render(strings.Join(notes, " ")))
	}
}

func reportOutcome(outcome engine.Outcome, runDir string) error {
	switch outcome.Kind {
	case engine.OutcomeApproved:
		fmt.Println(okStyle.Render("approved") + " — final artifact in " + filepath.Join(runDir, "final"))
		return nil
	case engine.OutcomeAwaitingHuman:
		fmt.Println(warnStyle.Render("awaiting human input"))
		for _, q := range outcome.Questions {
			fmt.Printf("  %s: %s\n", q.ID, q.Text)
		}
		fmt.Printf("Answer with: genflow answer --run-dir %s --answer <id>=<text>\n", runDir)
		return &ExitError{Code: engine.ExitAwaitingHuman, Printed: true}
	case engine.OutcomeAborted:
		fmt.Println(warnStyle.Render("aborted: " + outcome.Reason))
		return &ExitError{Code: engine.ExitMaxIterations, Printed: true}
	default:
		err := outcome.Err
		if err == nil {
			err = fmt.Errorf("run failed: %s", outcome.Reason)
		}
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return &ExitError{Code: engine.ExitError, Err: err, Printed: true}
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
