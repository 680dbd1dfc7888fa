package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RunDir is the per-run directory layout:
//
//	<run>/state.json
//	<run>/iterations/<n>/artifact.md, artifact_refined.md, critiques/...
//	<run>/final/artifact.md
//	<run>/resolution.json
//	<run>/hitl/questions.json, answers.json
type RunDir struct {
	Root string
}

// NewRunDir creates the layout root if needed.
func NewRunDir(root string) (*RunDir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir %s: %w", root, err)
	}
	return &RunDir{Root: root}, nil
}

// IterationDir returns the directory for one iteration's artifacts.
func (r *RunDir) IterationDir(iteration int) string {
	return filepath.Join(r.Root, "iterations", strconv.Itoa(iteration))
}

// SaveArtifact writes an iteration artifact atomically and returns its path.
func (r *RunDir) SaveArtifact(iteration int, name, text string) (string, error) {
	path := filepath.Join(r.IterationDir(iteration), name)
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

// SaveCritique writes one constraint's critique JSON under the iteration's
// critiques directory.
func (r *RunDir) SaveCritique(iteration int, constraintID, reviewer string, v any) error {
	path := filepath.Join(r.IterationDir(iteration), "critiques",
		fmt.Sprintf("%s-%s.json", constraintID, reviewer))
	return writeJSONAtomic(path, v)
}

// SaveFinalArtifact writes the approved (or last) artifact to final/.
func (r *RunDir) SaveFinalArtifact(text string) (string, error) {
	path := filepath.Join(r.Root, "final", "artifact.md")
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

type resolution struct {
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
	Iteration int    `json:"iteration"`
	Summary   string `json:"summary"`
}

// WriteResolution writes the terminal marker for the run.
func (r *RunDir) WriteResolution(reason string, iteration int, summary string) error {
	return writeJSONAtomic(filepath.Join(r.Root, "resolution.json"), resolution{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
		Iteration: iteration,
		Summary:   summary,
	})
}

// ResolutionExists reports whether the run already has a terminal marker.
func (r *RunDir) ResolutionExists() bool {
	_, err := os.Stat(filepath.Join(r.Root, "resolution.json"))
	return err == nil
}

// ResolutionExists reports whether runDir holds a terminal marker, without
// creating the directory layout.
func ResolutionExists(runDir string) bool {
	return (&RunDir{Root: runDir}).ResolutionExists()
}
