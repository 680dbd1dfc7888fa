package workflows

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LoadWorkflow reads a workflow definition from disk without validation.
func LoadWorkflow(path string) (*Workflow, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("workflow path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}

	wf, err := parseWorkflow(data)
	if err != nil {
		return nil, wrapParseError(path, err)
	}
	wf.Source = path
	return wf, nil
}

// Load reads, normalizes, and validates a workflow in one call.
func Load(path string) (*Workflow, error) {
	wf, err := LoadWorkflow(path)
	if err != nil {
		return nil, err
	}
	return ValidateWorkflow(wf)
}

func parseWorkflow(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := toml.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

func wrapParseError(path string, err error) error {
	list := &ErrorList{}

	var strictErr *toml.StrictMissingError
	if errors.As(err, &strictErr) {
		for _, decodeErr := range strictErr.Errors {
			line, column := decodeErr.Position()
			list.Add(WorkflowError{
				Code:    ErrCodeParse,
				Message: decodeErr.Error(),
				Path:    path,
				Line:    line,
				Column:  column,
				Field:   strings.Join(decodeErr.Key(), "."),
			})
		}
		return list
	}

	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		line, column := decodeErr.Position()
		list.Add(WorkflowError{
			Code:    ErrCodeParse,
			Message: decodeErr.Error(),
			Path:    path,
			Line:    line,
			Column:  column,
		})
		return list
	}

	list.Add(WorkflowError{
		Code:    ErrCodeParse,
		Message: err.Error(),
		Path:    path,
	})
	return list
}
