package models

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRunNotFound indicates a run id has no journal row.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoState indicates a run directory has no persisted state to resume.
	ErrNoState = errors.New("no persisted state")

	// ErrAwaitingHuman indicates a run is suspended pending human answers.
	ErrAwaitingHuman = errors.New("run awaiting human input")

	// ErrMaxIterations indicates the workflow exhausted its iteration cap.
	ErrMaxIterations = errors.New("maximum iterations reached")
)
