package app

import (
	"context"
	"fmt"
	"time"

	"chatrelay/internal/backup"
	"chatrelay/pkg/config"
	"chatrelay/pkg/hub"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
)

// App encapsulates the relay's components and lifecycle.
type App struct {
	eff     config.EffectiveConfig
	version string

	conv *state.Conversation
	hub  *hub.Hub
}

// New opens the store and loads the conversation. It does not start the hub
// or the HTTP server; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfig, version string) (*App, error) {
	if err := store.Open(eff.Config.Storage.Backend, eff.DataDir); err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", eff.DataDir, err)
	}

	conv, err := state.Load(models.GroupInfo{
		Name:  eff.Config.Group.Name,
		Image: eff.Config.Group.Image,
	})
	if err != nil {
		return nil, err
	}

	h := hub.New()
	conv.AttachBroadcaster(h)

	return &App{eff: eff, version: version, conv: conv, hub: h}, nil
}

// Run starts the hub, the backup scheduler and the HTTP server, and blocks
// until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()

	stopBackup, err := backup.Start(ctx, a.eff.Config.Backup, a.eff.DataDir)
	if err != nil {
		return err
	}
	defer stopBackup()

	a.printBanner()

	srv, errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		grace := a.eff.Config.Server.ShutdownGrace.Duration()
		if grace <= 0 {
			grace = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http_shutdown_incomplete", "error", err)
		}
		_ = a.hub.Shutdown(grace)
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", "error", err)
		}
		logger.Info("shutdown_complete")
		return nil
	case err := <-errCh:
		return err
	}
}
