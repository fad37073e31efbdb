package upload

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/reprank/internal/snapshot"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SetsInserted  int64
	RecordsStored int64
	Promotions    int
	Demotions     int
}

// State remembers which files were already uploaded. *snapshot.Store implements it.
type State interface {
	IsUploaded(relPath string, size int64, hash string) (bool, error)
	MarkUploaded(relPath string, size int64, hash string) error
}

// Sender delivers one export to the server. *Client implements it.
type Sender interface {
	SendAlphaExport(data []byte) (*Response, error)
}

// Uploader walks a directory of Alpha Progression CSV exports and POSTs the
// new or changed ones to the RepRank server.
type Uploader struct {
	client Sender
	state  State
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader.
func New(client Sender, state State, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every export not yet recorded in the state database. A file
// that fails is logged and counted; the rest still upload.
func (u *Uploader) Run() (*Stats, error) {
	files, err := filepath.Glob(filepath.Join(u.dir, "*.csv"))
	if err != nil {
		return &u.stats, fmt.Errorf("listing exports: %w", err)
	}

	for _, f := range files {
		u.stats.FilesTotal++
		if err := u.uploadFile(f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(path string) error {
	relPath, _ := filepath.Rel(u.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	hash, err := snapshot.HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("checking state: %w", err)
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	if u.dryRun {
		u.log.Info("would upload", "file", relPath, "bytes", info.Size())
		u.stats.FilesUploaded++
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	resp, err := u.client.SendAlphaExport(data)
	if err != nil {
		return err
	}
	if err := u.state.MarkUploaded(relPath, info.Size(), hash); err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}

	u.stats.FilesUploaded++
	u.stats.SetsInserted += resp.Import.SetsInserted
	u.stats.RecordsStored += resp.Import.RecordsStored
	if resp.Delta != nil {
		u.stats.Promotions += resp.Delta.Promotions
		u.stats.Demotions += resp.Delta.Demotions
		for _, c := range resp.Delta.Changed() {
			u.log.Info("tier change", "muscle", c.MuscleGroupID, "from", c.FromTier, "to", c.ToTier, "direction", c.Direction)
		}
	}
	if len(resp.Import.UnknownExercises) > 0 {
		u.log.Info("exercises not in catalog", "file", relPath, "names", resp.Import.UnknownExercises)
	}
	return nil
}
