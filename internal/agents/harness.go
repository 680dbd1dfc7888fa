// Package agents runs generator, critic, adjudicator, and refiner agents as
// subprocesses from named profiles, and parses their structured output.
package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mikewrather/agent-arena/internal/models"
)

// promptEnvVar carries the prompt to agents whose profile uses env mode.
const promptEnvVar = "GENFLOW_PROMPT_CONTENT"

// Execution is a prepared agent command.
type Execution struct {
	Cmd   *exec.Cmd
	Stdin io.Reader
	Env   []string
}

// BuildExecution prepares an agent subprocess from a profile. The command
// template runs under bash -lc so profiles can use pipes and shell quoting.
// A non-empty model appends the kind-appropriate model flag.
func BuildExecution(ctx context.Context, profile models.AgentProfile, model, prompt string) (*Execution, error) {
	command := strings.TrimSpace(profile.Command)
	if command == "" {
		return nil, errors.New("agent command is required")
	}

	if args := profile.ModelArgs(model); len(args) > 0 {
		command = command + " " + strings.Join(args, " ")
	}

	promptMode := profile.PromptMode
	if promptMode == "" {
		promptMode = models.PromptModeEnv
	}
	switch promptMode {
	case models.PromptModeEnv, models.PromptModeStdin:
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", promptMode)
	}

	cmd := exec.CommandContext(ctx, "bash", "-lc", command)
	stdin := io.Reader(nil)

	env := buildEnv(profile, promptMode, prompt)
	cmd.Env = env
	if promptMode == models.PromptModeStdin {
		stdin = strings.NewReader(prompt)
		cmd.Stdin = stdin
	}

	return &Execution{Cmd: cmd, Stdin: stdin, Env: env}, nil
}

func buildEnv(profile models.AgentProfile, mode models.PromptMode, prompt string) []string {
	env := append([]string{}, os.Environ()...)

	if mode == models.PromptModeEnv {
		env = append(env, promptEnvVar+"="+prompt)
	}
	for key, value := range profile.Env {
		env = append(env, key+"="+value)
	}
	return env
}
