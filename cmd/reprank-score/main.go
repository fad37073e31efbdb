package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/config"
	"github.com/claude/reprank/internal/ingest/alpha"
	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/snapshot"
)

// output is what the scorer prints.
type output struct {
	Snapshot         string          `json:"snapshot,omitempty"`
	Ranks            *scoring.Result `json:"ranks"`
	Delta            *ranking.Delta  `json:"delta,omitempty"`
	UnknownExercises []string        `json:"unknown_exercises,omitempty"`
}

func main() {
	scoringPath := flag.String("scoring", "configs/scoring.yaml", "path to scoring config")
	catalogPath := flag.String("catalog", "configs/catalog.yaml", "path to exercise catalog")
	profilePath := flag.String("profile", "", "body profile YAML (strength is skipped without one)")
	csvPath := flag.String("file", "", "path to Alpha Progression CSV export (required)")
	asOfStr := flag.String("as-of", "", "evaluate as of this date (YYYY-MM-DD or RFC 3339); defaults to now")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for the snapshot database")
	noSave := flag.Bool("no-save", false, "compare against the last snapshot without saving this one")
	history := flag.Bool("history", false, "list saved snapshots and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := snapshot.Open(*stateDir)
	if err != nil {
		log.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *history {
		snaps, err := store.History(20)
		if err != nil {
			log.Error("failed to list snapshots", "error", err)
			os.Exit(1)
		}
		printJSON(snaps)
		return
	}

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: reprank-score -file export.csv [-profile profile.yaml] [-as-of 2026-03-18] [-no-save]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	asOf, err := parseAsOf(*asOfStr)
	if err != nil {
		log.Error("invalid -as-of", "value", *asOfStr, "error", err)
		os.Exit(1)
	}

	cfg, err := scoring.LoadConfig(*scoringPath)
	if err != nil {
		log.Error("failed to load scoring config", "error", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Error("failed to load exercise catalog", "error", err)
		os.Exit(1)
	}

	var profile *scoring.BodyProfile
	if *profilePath != "" {
		row, err := config.LoadProfile(*profilePath)
		if err != nil {
			log.Error("failed to load profile", "error", err)
			os.Exit(1)
		}
		if profile, err = ranking.ProfileFromRow(row, asOf); err != nil {
			log.Error("invalid profile", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no body profile: strength scores are skipped")
	}

	hash, err := snapshot.HashFile(*csvPath)
	if err != nil {
		log.Error("failed to read export", "error", err)
		os.Exit(1)
	}
	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	parsed, err := alpha.Parse(f)
	f.Close()
	if err != nil {
		log.Error("failed to parse export", "error", err)
		os.Exit(1)
	}

	var bodyWeight float64
	if profile != nil {
		bodyWeight = profile.BodyWeight
	}
	sessions, unknown := alpha.ToSessions(parsed, cat, bodyWeight)
	if len(unknown) > 0 {
		log.Warn("exercises not in catalog", "names", unknown)
	}

	res, err := scoring.Evaluate(cfg, scoring.Input{
		AsOf:         asOf,
		Profile:      profile,
		MuscleGroups: cat.MuscleGroups,
		Exercises:    cat.Exercises,
		Records:      scoring.DerivePersonalRecords(cfg, sessions),
		Sessions:     sessions,
	})
	if err != nil {
		log.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	out := output{Ranks: res, UnknownExercises: unknown}

	prev, err := store.Latest()
	if err != nil {
		log.Error("failed to load last snapshot", "error", err)
		os.Exit(1)
	}
	if prev != nil {
		if prev.ConfigVersion != res.ConfigVersion {
			log.Warn("last snapshot used a different scoring config",
				"previous", prev.ConfigVersion, "current", res.ConfigVersion)
		}
		out.Delta = ranking.Compare(prev.Result, res)
	}

	if !*noSave {
		snap, err := store.Save(res, hash)
		if err != nil {
			log.Error("failed to save snapshot", "error", err)
			os.Exit(1)
		}
		out.Snapshot = snap.ID.String()
	}

	printJSON(out)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encoding output:", err)
		os.Exit(1)
	}
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reprank"
	}
	return filepath.Join(home, ".reprank")
}
