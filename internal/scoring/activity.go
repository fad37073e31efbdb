package scoring

import (
	"sort"
	"time"
)

const day = 24 * time.Hour

// inWindow reports whether t falls in (asOf-window, asOf].
func inWindow(t, asOf time.Time, window time.Duration) bool {
	age := asOf.Sub(t)
	return age >= 0 && age < window
}

// CountSessions counts sessions in the trailing 28- and 56-day windows.
// Sessions after asOf are ignored.
func CountSessions(sessions []Session, asOf time.Time) EvidenceWindow {
	var e EvidenceWindow
	for _, s := range sessions {
		if inWindow(s.Date, asOf, ShortWindowDays*day) {
			e.Sessions28++
		}
		if inWindow(s.Date, asOf, LongWindowDays*day) {
			e.Sessions56++
		}
	}
	return e
}

// WeeklyHardSets averages contribution-weighted hard sets per muscle group
// over the configured lookback. A hard set of an exercise adds
// contribution/100 to every muscle it contributes at least min_contribution to.
func WeeklyHardSets(cfg *Config, sessions []Session, exercises []ExerciseDefinition, asOf time.Time) map[string]float64 {
	byID := indexExercises(exercises)
	weeks := cfg.VolumeCurve.LookbackWeeks
	window := time.Duration(weeks) * 7 * day

	totals := make(map[string]float64)
	for _, sess := range sessions {
		if !inWindow(sess.Date, asOf, window) {
			continue
		}
		for _, s := range sess.Sets {
			if !IsHardSet(s.SetRecord) {
				continue
			}
			ex, ok := byID[s.ExerciseID]
			if !ok {
				continue
			}
			for _, c := range ex.Contributions {
				if c.Percentage < cfg.Aggregation.MinContribution {
					continue
				}
				totals[c.MuscleGroupID] += c.Percentage / 100
			}
		}
	}
	for id := range totals {
		totals[id] /= float64(weeks)
	}
	return totals
}

// Recovery states of a muscle group.
const (
	RecoveryUntrained  = "untrained"
	RecoveryFatigued   = "fatigued"
	RecoveryRecovering = "recovering"
	RecoveryRecovered  = "recovered"
)

// RecoveryState is how recovered a muscle group is since it was last trained hard.
type RecoveryState struct {
	MuscleGroupID string     `json:"muscle_group_id"`
	State         string     `json:"state"`
	LastTrained   *time.Time `json:"last_trained,omitempty"`
	HoursSince    float64    `json:"hours_since"`
	RecoveredPct  float64    `json:"recovered_pct"`
}

// RecoveryStates reports per-muscle recovery from the latest session that
// holds a hard set for a contributing exercise.
func RecoveryStates(cfg *Config, sessions []Session, exercises []ExerciseDefinition, muscles []MuscleGroup, asOf time.Time) []RecoveryState {
	byID := indexExercises(exercises)
	last := make(map[string]time.Time)
	for _, sess := range sessions {
		if sess.Date.After(asOf) {
			continue
		}
		for _, s := range sess.Sets {
			if !IsHardSet(s.SetRecord) {
				continue
			}
			ex, ok := byID[s.ExerciseID]
			if !ok {
				continue
			}
			for _, c := range ex.Contributions {
				if c.Percentage < cfg.Aggregation.MinContribution {
					continue
				}
				if t, seen := last[c.MuscleGroupID]; !seen || sess.Date.After(t) {
					last[c.MuscleGroupID] = sess.Date
				}
			}
		}
	}

	out := make([]RecoveryState, 0, len(muscles))
	for _, m := range muscles {
		st := RecoveryState{MuscleGroupID: m.ID, State: RecoveryUntrained}
		if t, ok := last[m.ID]; ok {
			trained := t
			st.LastTrained = &trained
			st.HoursSince = asOf.Sub(t).Hours()
			st.RecoveredPct = clamp(st.HoursSince/cfg.Recovery.FullRecoveryHours*100, 0, 100)
			switch {
			case st.RecoveredPct < cfg.Recovery.FatiguedBelowPct:
				st.State = RecoveryFatigued
			case st.RecoveredPct < 100:
				st.State = RecoveryRecovering
			default:
				st.State = RecoveryRecovered
			}
		}
		out = append(out, st)
	}
	return out
}

// Streak counts consecutive training weeks.
type Streak struct {
	CurrentWeeks int `json:"current_weeks"`
	LongestWeeks int `json:"longest_weeks"`
}

// TrainingStreak counts consecutive UTC weeks (Monday start) holding at least
// min_sessions_per_week sessions. The week containing asOf only extends the
// current streak; it never breaks it.
func TrainingStreak(cfg *Config, sessions []Session, asOf time.Time) Streak {
	counts := make(map[time.Time]int)
	for _, s := range sessions {
		if s.Date.After(asOf) {
			continue
		}
		counts[weekStart(s.Date)]++
	}

	var weeks []time.Time
	qualifies := make(map[time.Time]bool)
	for w, n := range counts {
		if n >= cfg.Streak.MinSessionsPerWeek {
			weeks = append(weeks, w)
			qualifies[w] = true
		}
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	var st Streak
	run := 0
	for i, w := range weeks {
		if i > 0 && w.Equal(weeks[i-1].AddDate(0, 0, 7)) {
			run++
		} else {
			run = 1
		}
		if run > st.LongestWeeks {
			st.LongestWeeks = run
		}
	}

	w := weekStart(asOf)
	if !qualifies[w] {
		w = w.AddDate(0, 0, -7)
	}
	for qualifies[w] {
		st.CurrentWeeks++
		w = w.AddDate(0, 0, -7)
	}
	return st
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

func indexExercises(exercises []ExerciseDefinition) map[string]ExerciseDefinition {
	byID := make(map[string]ExerciseDefinition, len(exercises))
	for _, e := range exercises {
		byID[e.ID] = e
	}
	return byID
}
