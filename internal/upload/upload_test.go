package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/reprank/internal/ingest"
	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
	"github.com/claude/reprank/internal/snapshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	calls int
	fail  map[string]bool
	resp  *Response
}

func (f *fakeSender) SendAlphaExport(data []byte) (*Response, error) {
	f.calls++
	if f.fail[string(data)] {
		return nil, errors.New("boom")
	}
	return f.resp, nil
}

func writeExport(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openState(t *testing.T) *snapshot.Store {
	t.Helper()
	s, err := snapshot.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening state: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestUploaderSkipsUploaded verifies a second run only sends new or changed files.
func TestUploaderSkipsUploaded(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.csv", "one")
	writeExport(t, dir, "b.csv", "two")
	writeExport(t, dir, "notes.txt", "ignored")

	sender := &fakeSender{resp: &Response{
		Import: ingest.Result{SetsInserted: 5, RecordsStored: 2},
		Delta:  &ranking.Delta{Promotions: 1},
	}}
	state := openState(t)

	stats, err := New(sender, state, dir, false, testLogger()).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 {
		t.Errorf("first run stats = %+v, want 2 total 2 uploaded", stats)
	}
	if stats.SetsInserted != 10 || stats.RecordsStored != 4 || stats.Promotions != 2 {
		t.Errorf("first run totals = %+v", stats)
	}

	writeExport(t, dir, "b.csv", "two, edited")
	stats, err = New(sender, state, dir, false, testLogger()).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesSkipped != 1 || stats.FilesUploaded != 1 {
		t.Errorf("second run stats = %+v, want 1 skipped 1 uploaded", stats)
	}
	if sender.calls != 3 {
		t.Errorf("sender calls = %d, want 3", sender.calls)
	}
}

// TestUploaderErrorNotMarked verifies a failed file is retried on the next run.
func TestUploaderErrorNotMarked(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "bad.csv", "bad")

	sender := &fakeSender{fail: map[string]bool{"bad": true}, resp: &Response{}}
	state := openState(t)

	stats, _ := New(sender, state, dir, false, testLogger()).Run()
	if stats.FilesErrored != 1 {
		t.Errorf("FilesErrored = %d, want 1", stats.FilesErrored)
	}

	sender.fail = nil
	stats, _ = New(sender, state, dir, false, testLogger()).Run()
	if stats.FilesUploaded != 1 {
		t.Errorf("retry FilesUploaded = %d, want 1", stats.FilesUploaded)
	}
}

// TestUploaderDryRun verifies dry runs send nothing and record nothing.
func TestUploaderDryRun(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a.csv", "one")

	sender := &fakeSender{}
	state := openState(t)

	stats, _ := New(sender, state, dir, true, testLogger()).Run()
	if stats.FilesUploaded != 1 || sender.calls != 0 {
		t.Errorf("dry run stats = %+v calls = %d", stats, sender.calls)
	}
	if ok, _ := state.IsUploaded("a.csv", 3, "x"); ok {
		t.Error("dry run recorded upload state")
	}
}

// TestClientSendAlphaExport verifies the request shape and response decoding.
func TestClientSendAlphaExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ingest/alpha" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "csv" {
			t.Errorf("body = %q", body)
		}
		fmt.Fprint(w, `{"import":{"sets_inserted":3},"delta":{"overall":{"from_tier":"bronze","to_tier":"silver"},"muscles":[],"promotions":0,"demotions":0}}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/", "secret").SendAlphaExport([]byte("csv"))
	if err != nil {
		t.Fatalf("SendAlphaExport: %v", err)
	}
	if resp.Import.SetsInserted != 3 {
		t.Errorf("SetsInserted = %d, want 3", resp.Import.SetsInserted)
	}
	if resp.Delta == nil || resp.Delta.Overall.ToTier != scoring.TierSilver {
		t.Errorf("Delta = %+v, want overall silver", resp.Delta)
	}
}

// TestClientNoRetryOnClientError verifies 4xx responses fail immediately.
func TestClientNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "wrong").SendAlphaExport([]byte("csv"))
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want 401 rejection", err)
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

// TestClientRetriesServerError verifies 5xx responses are retried.
func TestClientRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"import":{"sets_inserted":1}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	c.backoff = time.Millisecond
	resp, err := c.SendAlphaExport([]byte("csv"))
	if err != nil {
		t.Fatalf("SendAlphaExport: %v", err)
	}
	if resp.Import.SetsInserted != 1 || hits.Load() != 3 {
		t.Errorf("SetsInserted = %d hits = %d, want 1 and 3", resp.Import.SetsInserted, hits.Load())
	}
}
