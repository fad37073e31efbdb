package catalog

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/claude/reprank/internal/scoring"
)

// Catalog is the static list of muscle groups and the exercises that train
// them. It is read-only after Load.
type Catalog struct {
	MuscleGroups []scoring.MuscleGroup
	Exercises    []scoring.ExerciseDefinition

	muscles   map[string]int
	exercises map[string]int
	names     map[string]string // normalized name or alias -> exercise id
}

type document struct {
	MuscleGroups []scoring.MuscleGroup `yaml:"muscle_groups"`
	Exercises    []exerciseEntry       `yaml:"exercises"`
}

type exerciseEntry struct {
	ID               string                       `yaml:"id"`
	Name             string                       `yaml:"name"`
	StrengthStandard float64                      `yaml:"strength_standard"`
	Aliases          []string                     `yaml:"aliases"`
	Contributions    []scoring.MuscleContribution `yaml:"contributions"`
}

// Load reads a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		MuscleGroups: doc.MuscleGroups,
		muscles:      make(map[string]int, len(doc.MuscleGroups)),
		exercises:    make(map[string]int, len(doc.Exercises)),
		names:        make(map[string]string),
	}
	if len(doc.MuscleGroups) == 0 {
		return nil, fmt.Errorf("catalog has no muscle groups")
	}
	for i, m := range doc.MuscleGroups {
		if m.ID == "" {
			return nil, fmt.Errorf("muscle group %d: id is required", i)
		}
		if _, dup := c.muscles[m.ID]; dup {
			return nil, fmt.Errorf("duplicate muscle group %q", m.ID)
		}
		c.muscles[m.ID] = i
	}

	for _, e := range doc.Exercises {
		if err := c.add(e); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(e exerciseEntry) error {
	if e.ID == "" || e.Name == "" {
		return fmt.Errorf("exercise %q: id and name are required", e.ID)
	}
	if _, dup := c.exercises[e.ID]; dup {
		return fmt.Errorf("duplicate exercise %q", e.ID)
	}
	if e.StrengthStandard < 0 {
		return fmt.Errorf("exercise %q: strength_standard must not be negative", e.ID)
	}
	seen := make(map[string]bool, len(e.Contributions))
	for _, contrib := range e.Contributions {
		if _, ok := c.muscles[contrib.MuscleGroupID]; !ok {
			return fmt.Errorf("exercise %q: unknown muscle group %q", e.ID, contrib.MuscleGroupID)
		}
		if seen[contrib.MuscleGroupID] {
			return fmt.Errorf("exercise %q: muscle group %q listed twice", e.ID, contrib.MuscleGroupID)
		}
		seen[contrib.MuscleGroupID] = true
		if contrib.Percentage < 0 || contrib.Percentage > 100 {
			return fmt.Errorf("exercise %q: contribution to %q must be within [0, 100], got %v",
				e.ID, contrib.MuscleGroupID, contrib.Percentage)
		}
	}

	for _, name := range append([]string{e.ID, e.Name}, e.Aliases...) {
		key := normalize(name)
		if owner, taken := c.names[key]; taken && owner != e.ID {
			return fmt.Errorf("exercise %q: name %q already used by %q", e.ID, name, owner)
		}
		c.names[key] = e.ID
	}

	c.exercises[e.ID] = len(c.Exercises)
	c.Exercises = append(c.Exercises, scoring.ExerciseDefinition{
		ID:               e.ID,
		Name:             e.Name,
		StrengthStandard: e.StrengthStandard,
		Contributions:    e.Contributions,
	})
	return nil
}

// Exercise returns an exercise by id.
func (c *Catalog) Exercise(id string) (scoring.ExerciseDefinition, bool) {
	i, ok := c.exercises[id]
	if !ok {
		return scoring.ExerciseDefinition{}, false
	}
	return c.Exercises[i], true
}

// MuscleGroup returns a muscle group by id.
func (c *Catalog) MuscleGroup(id string) (scoring.MuscleGroup, bool) {
	i, ok := c.muscles[id]
	if !ok {
		return scoring.MuscleGroup{}, false
	}
	return c.MuscleGroups[i], true
}

// Resolve maps an exercise name as logged by a tracking app to an exercise id.
// Matching ignores case, punctuation and repeated whitespace.
func (c *Catalog) Resolve(name string) (string, bool) {
	id, ok := c.names[normalize(name)]
	return id, ok
}

// ExercisesFor lists the exercises that contribute to a muscle group, in catalog order.
func (c *Catalog) ExercisesFor(muscleGroupID string) []scoring.ExerciseDefinition {
	var out []scoring.ExerciseDefinition
	for _, e := range c.Exercises {
		if _, ok := e.ContributionTo(muscleGroupID); ok {
			out = append(out, e)
		}
	}
	return out
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.', ',', '(', ')', '/':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
