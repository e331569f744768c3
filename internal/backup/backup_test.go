package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatrelay/pkg/config"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	if err := store.Open("file", t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestRunOnceSnapshotsDocuments(t *testing.T) {
	openStore(t)
	if err := store.SaveMessages([]models.Message{{Username: "alice", Message: "hi", Timestamp: 1}}); err != nil {
		t.Fatalf("seed messages: %v", err)
	}
	if err := store.SaveGroup(models.GroupInfo{Name: "Room", Image: "/g.png"}); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	dir := t.TempDir()
	if err := RunOnce(dir, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d snapshot files, want 2", len(entries))
	}
	var sawMessages, sawGroup bool
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), "-messages.json"):
			sawMessages = true
		case strings.HasSuffix(e.Name(), "-group.json"):
			sawGroup = true
		default:
			t.Fatalf("unexpected snapshot name %q", e.Name())
		}
	}
	if !sawMessages || !sawGroup {
		t.Fatalf("missing snapshot kinds: messages=%v group=%v", sawMessages, sawGroup)
	}
}

func TestRunOnceSkipsAbsentDocuments(t *testing.T) {
	openStore(t)

	dir := t.TempDir()
	if err := RunOnce(dir, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d snapshot files, want none for an empty store", len(entries))
	}
}

func TestPruneRemovesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	// stamped names sort oldest first
	files := []string{
		"20240101T000000Z-messages.json",
		"20240102T000000Z-messages.json",
		"20240103T000000Z-messages.json",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, 100), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if err := prune(dir, 200); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, files[0])); !os.IsNotExist(err) {
		t.Fatal("oldest snapshot should have been removed")
	}
	for _, name := range files[1:] {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("newer snapshot %s should survive: %v", name, err)
		}
	}
}

func TestStartDisabled(t *testing.T) {
	cancel, err := Start(context.Background(), config.BackupConfig{}, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	cfg := config.BackupConfig{Enabled: true, Cron: "not a cron"}
	if _, err := Start(context.Background(), cfg, t.TempDir()); err == nil {
		t.Fatal("expected invalid cron expression to be rejected")
	}
}
