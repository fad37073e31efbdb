package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/config"
	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/ingest/alpha"
	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("file", "", "path to Alpha Progression CSV export (required)")
	profilePath := flag.String("profile", "", "body profile YAML to store before importing")
	login := flag.String("user", "local", "tailnet login the data belongs to")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without touching the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: reprank-import -config config.yaml -file export.csv [-profile profile.yaml] [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	scoringCfg, err := scoring.LoadConfig(cfg.Scoring.ConfigPath)
	if err != nil {
		log.Error("failed to load scoring config", "error", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(cfg.Scoring.CatalogPath)
	if err != nil {
		log.Error("failed to load exercise catalog", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open export", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		if err := dryRunImport(f, cat, scoringCfg, log); err != nil {
			log.Error("dry run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	uid, err := db.GetOrCreateUser(ctx, *login, "")
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	if *profilePath != "" {
		profile, err := config.LoadProfile(*profilePath)
		if err != nil {
			log.Error("failed to load profile", "error", err)
			os.Exit(1)
		}
		profile.UserID = uid
		if err := db.UpsertBodyProfile(ctx, *profile); err != nil {
			log.Error("failed to store profile", "error", err)
			os.Exit(1)
		}
		log.Info("body profile stored", "body_weight_kg", profile.BodyWeightKg, "sex", profile.Sex)
	}

	// Run import
	start := time.Now()
	result, err := alpha.NewProvider(db, cat, scoringCfg, nil, log).Ingest(ctx, f, uid)
	duration := int(time.Since(start).Milliseconds())
	logEntry := storage.ImportLog{UserID: uid, Source: ingest.SourceAlpha, Status: "success", DurationMs: &duration}
	if err != nil {
		msg := err.Error()
		logEntry.Status, logEntry.ErrorMessage = "error", &msg
	} else {
		logEntry.SessionsReceived = result.SessionsReceived
		logEntry.SetsReceived = result.SetsReceived
		logEntry.SetsInserted = result.SetsInserted
		logEntry.RecordsStored = result.RecordsStored
	}
	if _, lerr := db.InsertImportLog(ctx, logEntry); lerr != nil {
		log.Warn("failed to log import", "error", lerr)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	printResult(log, result)

	res, err := ranking.NewService(db, cat, scoringCfg, nil, log).Evaluate(ctx, uid, time.Now())
	if err != nil {
		log.Error("rank evaluation failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete", "overall_rank", res.OverallRank.Tier, "overall_score", res.OverallScore)
}

// dryRunImport parses and scores the export in memory.
func dryRunImport(f *os.File, cat *catalog.Catalog, cfg *scoring.Config, log *slog.Logger) error {
	sessions, err := alpha.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing CSV: %w", err)
	}
	scored, unknown := alpha.ToSessions(sessions, cat, 0)
	var sets int
	for _, s := range scored {
		sets += len(s.Sets)
	}
	records := scoring.DerivePersonalRecords(cfg, scored)
	printResult(log, &ingest.Result{
		SessionsReceived: len(sessions),
		SetsReceived:     sets,
		RecordsStored:    int64(len(records)),
		UnknownExercises: unknown,
	})
	return nil
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"sessions", r.SessionsReceived,
		"sets_received", r.SetsReceived,
		"sets_inserted", r.SetsInserted,
		"sets_skipped", r.SetsSkipped,
		"records", r.RecordsStored,
	)
	if len(r.UnknownExercises) > 0 {
		log.Info("exercises not in catalog", "names", r.UnknownExercises)
	}
}
