package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikewrather/agent-arena/internal/engine"
	"github.com/mikewrather/agent-arena/internal/models"
)

// Store persists the run context as state.json in the run directory.
type Store struct {
	path string
}

// NewStore builds a store for the given run directory.
func NewStore(runDir string) *Store {
	return &Store{path: filepath.Join(runDir, "state.json")}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes the context atomically.
func (s *Store) Save(rc *engine.RunContext) error {
	return writeJSONAtomic(s.path, rc)
}

// Load reads the persisted context. Returns (nil, nil) when no state file
// exists yet.
func (s *Store) Load() (*engine.RunContext, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}

	var rc engine.RunContext
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	if rc.CritiquesByStep == nil {
		rc.CritiquesByStep = make(map[string][]models.CritiqueRecord)
	}
	return &rc, nil
}
