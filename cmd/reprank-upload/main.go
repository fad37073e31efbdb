package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/reprank/internal/snapshot"
	"github.com/claude/reprank/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepRank server URL (e.g. https://reprank.tail1234.ts.net)")
	exportDir := flag.String("path", "", "directory containing Alpha Progression CSV exports")
	apiKey := flag.String("api-key", os.Getenv("REPRANK_API_KEY"), "server API key (default $REPRANK_API_KEY)")
	stateDir := flag.String("state-dir", "", "upload state directory (default ~/.reprank)")
	dryRun := flag.Bool("dry-run", false, "list files that would be uploaded without sending them")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("reprank-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: reprank-upload -server <URL> -path <export dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*exportDir)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *exportDir)
		os.Exit(1)
	}

	if *stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(home, ".reprank")
	}
	state, err := snapshot.Open(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode, files will be listed but not sent")
	}

	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, *exportDir, *dryRun, log)
	stats, err := uploader.Run()
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sets inserted:    %d\n", stats.SetsInserted)
	fmt.Printf("  Records stored:   %d\n", stats.RecordsStored)
	fmt.Printf("  Promotions:       %d\n", stats.Promotions)
	fmt.Printf("  Demotions:        %d\n", stats.Demotions)
	fmt.Println()
}
