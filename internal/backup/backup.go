// Package backup periodically copies the persisted conversation documents
// into a side directory. It is a safety net for the whole-document store:
// a document corrupted by a crash mid-write can be restored from the latest
// snapshot by hand. The scheduler is disabled unless configured and never
// touches the live documents.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adhocore/gronx"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/store"
)

// Start starts the backup scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.BackupConfig, dataDir string) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("backup_disabled")
		return func() {}, nil
	}

	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(dataDir, "backups")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("backup_dir_create_failed", "dir", dir, "error", err)
		return nil, err
	}

	// default daily @02:00
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("backup_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid backup cron expression: %s", cfg.Cron)
	}

	logger.Info("backup_enabled", "cron", cronExpr, "dir", dir)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, dir, cfg.MaxTotalBytes.Int64())
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// triggering one snapshot per tick.
func runScheduler(ctx context.Context, cronExpr, dir string, maxBytes int64) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("backup_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("backup_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(dir, maxBytes); err != nil {
				logger.Error("backup_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("backup_scheduler_stopping")
			return
		}
	}
}

// RunOnce snapshots both documents into dir and prunes old snapshots above
// the size budget. Exported so admin tooling and tests can trigger a run
// directly.
func RunOnce(dir string, maxBytes int64) error {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, kind := range []store.Kind{store.KindMessages, store.KindGroup} {
		doc, err := store.Export(kind)
		if err != nil {
			return err
		}
		if doc == nil {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("%s-%s.json", stamp, kind))
		if err := os.WriteFile(name, doc, 0o644); err != nil {
			return fmt.Errorf("write backup %s: %w", name, err)
		}
		logger.Info("backup_written", "file", name, "bytes", len(doc))
	}
	if maxBytes > 0 {
		return prune(dir, maxBytes)
	}
	return nil
}

// prune removes the oldest snapshots until the directory fits the budget.
// Snapshot names start with a UTC stamp, so lexical order is age order.
func prune(dir string, maxBytes int64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	var total int64
	sizes := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		names = append(names, e.Name())
		sizes[e.Name()] = fi.Size()
		total += fi.Size()
	}
	sort.Strings(names)
	for _, name := range names {
		if total <= maxBytes {
			break
		}
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil {
			return err
		}
		total -= sizes[name]
		logger.Info("backup_pruned", "file", p)
	}
	return nil
}
