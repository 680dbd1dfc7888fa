package constraints

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDir loads all constraint files (*.yaml, *.yml) from a directory.
// Files are read in lexical filename order; that order is the "definition
// order" selection uses.
func LoadDir(dir string) ([]Constraint, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read constraints dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	loaded := make([]Constraint, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read constraint %s: %w", path, err)
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		c, err := parseConstraint(data, path, stem)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("constraint id %q in %s already defined in %s", c.ID, path, prev)
		}
		seen[c.ID] = path
		loaded = append(loaded, c)
	}

	return loaded, nil
}

// Summaries joins constraint summaries into the compressed digest handed to
// generators, ordered by ascending priority.
func Summaries(all []Constraint) string {
	ordered := make([]Constraint, len(all))
	copy(ordered, all)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	var b strings.Builder
	for _, c := range ordered {
		if strings.TrimSpace(c.Summary) == "" {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s\n", c.ID, strings.TrimSpace(c.Summary))
	}
	return b.String()
}
