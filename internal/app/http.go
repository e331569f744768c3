package app

import (
	"errors"
	"net/http"

	"chatrelay/pkg/api"
	"chatrelay/pkg/banner"
	"chatrelay/pkg/security"
)

// printBanner prints the startup banner with the effective settings.
func (a *App) printBanner() {
	backendName := a.eff.Config.Storage.Backend
	if backendName == "" {
		backendName = "file"
	}
	banner.Print(a.eff.Addr, a.eff.DataDir, a.eff.AssetsDir, backendName, a.eff.Source, a.version)
}

// startHTTP builds the handler stack, starts the HTTP server in a goroutine
// and returns the server plus a channel carrying any fatal serve error.
func (a *App) startHTTP() (*http.Server, <-chan error) {
	handler := api.New(a.conv, a.hub, a.eff.AssetsDir)

	secCfg := security.SecConfig{
		AllowedOrigins: append([]string{}, a.eff.Config.Security.CORS.AllowedOrigins...),
		RPS:            a.eff.Config.Security.RateLimit.RPS,
		Burst:          a.eff.Config.Security.RateLimit.Burst,
	}
	wrapped := security.Middleware(secCfg)(handler)

	srv := &http.Server{Addr: a.eff.Addr, Handler: wrapped}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return srv, errCh
}
