package agents

import "fmt"

// AgentError reports an agent subprocess that exited non-zero or could not
// run at all. ExitCode is -1 when the process never produced an exit status.
type AgentError struct {
	Agent    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *AgentError) Error() string {
	msg := fmt.Sprintf("agent %s failed (exit %d)", e.Agent, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AgentError) Unwrap() error { return e.Err }
