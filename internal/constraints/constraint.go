// Package constraints loads constraint definition files and selects
// constraints for critique steps.
package constraints

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikewrather/agent-arena/internal/models"
)

// Rule is a single checkable rule within a constraint.
type Rule struct {
	ID              string            `yaml:"id"`
	Text            string            `yaml:"text"`
	DefaultSeverity string            `yaml:"default_severity"`
	Examples        map[string]string `yaml:"examples"`
}

// Constraint is one loaded constraint definition. Critics receive the full
// rule list; generators receive only the summary.
type Constraint struct {
	ID       string            `yaml:"id"`
	Priority int               `yaml:"priority"`
	Summary  string            `yaml:"summary"`
	Behavior map[string]string `yaml:"behavior"`
	Rules    []Rule            `yaml:"rules"`

	Source string `yaml:"-"`
}

// BehaviorOverrides parses the constraint's own behavior map. Nil when the
// constraint declares none.
func (c Constraint) BehaviorOverrides() models.BehaviorMap {
	return models.ParseBehaviorMap(c.Behavior)
}

func parseConstraint(data []byte, path, fallbackID string) (Constraint, error) {
	var c Constraint
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Constraint{}, fmt.Errorf("parse constraint %s: %w", path, err)
	}
	if strings.TrimSpace(c.ID) == "" {
		c.ID = fallbackID
	}
	if c.Priority == 0 {
		c.Priority = 10
	}
	for i := range c.Rules {
		if c.Rules[i].DefaultSeverity == "" {
			c.Rules[i].DefaultSeverity = string(models.SeverityHigh)
		}
	}
	c.Source = path
	return c, nil
}
