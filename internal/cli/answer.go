package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikewrather/agent-arena/internal/models"
	"github.com/mikewrather/agent-arena/internal/state"
)

var (
	answerRunDir string
	answerPairs  []string
	answerStdin  bool
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer the questions of a suspended run",
	Long: `Write an answer set for a run that is awaiting human input.

Answers are given as --answer <question-id>=<text> pairs, or one pair per
line on stdin with --stdin. The next 'genflow run' ingests them and
resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hitl := state.NewHITLChannel(answerRunDir)

		questions, err := hitl.ReadQuestions()
		if err != nil {
			return err
		}
		if questions == nil {
			return fmt.Errorf("no pending questions in %s", answerRunDir)
		}

		pairs := answerPairs
		if answerStdin {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line != "" {
					pairs = append(pairs, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		}
		if len(pairs) == 0 {
			return fmt.Errorf("no answers given; use --answer <id>=<text> or --stdin")
		}

		known := make(map[string]bool, len(questions))
		for _, q := range questions {
			known[q.ID] = true
		}

		answers := make([]models.Answer, 0, len(pairs))
		for _, pair := range pairs {
			id, text, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("malformed answer %q, want <id>=<text>", pair)
			}
			id = strings.TrimSpace(id)
			if !known[id] {
				return fmt.Errorf("unknown question id %q", id)
			}
			answers = append(answers, models.Answer{QuestionID: id, Text: strings.TrimSpace(text)})
		}

		if err := hitl.WriteAnswers(answers); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("wrote %d answer(s)", len(answers)))+
			" — resume with: genflow run")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().StringVarP(&answerRunDir, "run-dir", "d", "", "run directory")
	answerCmd.Flags().StringArrayVarP(&answerPairs, "answer", "a", nil, "answer as <question-id>=<text> (repeatable)")
	answerCmd.Flags().BoolVar(&answerStdin, "stdin", false, "read answers from stdin, one <id>=<text> per line")
	_ = answerCmd.MarkFlagRequired("run-dir")
}
