package alpha

import (
	"sort"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/models"
	"github.com/claude/reprank/internal/scoring"
)

// ToSessions converts parsed sessions into scoring sessions. Exercises the
// catalog cannot resolve are dropped and returned by name, sorted and
// deduplicated. Body-weight-plus sets carry the lifter's body weight when
// bodyWeightKg is known.
func ToSessions(sessions []models.AlphaSession, cat *catalog.Catalog, bodyWeightKg float64) ([]scoring.Session, []string) {
	unknown := make(map[string]bool)
	out := make([]scoring.Session, 0, len(sessions))

	for _, s := range sessions {
		sess := scoring.Session{Date: s.Date}
		for _, ex := range s.Exercises {
			id, ok := cat.Resolve(ex.Name)
			if !ok {
				unknown[ex.Name] = true
				continue
			}
			for _, set := range ex.Sets {
				sess.Sets = append(sess.Sets, scoring.LoggedSet{
					ExerciseID: id,
					SetRecord: scoring.SetRecord{
						Weight:   set.Load(bodyWeightKg),
						Reps:     set.Reps,
						RPE:      set.RPE(),
						IsWarmup: set.IsWarmup,
					},
				})
			}
		}
		out = append(out, sess)
	}

	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, n)
	}
	sort.Strings(names)
	return out, names
}
