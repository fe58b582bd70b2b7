package types

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/cache"
)

type App struct {
	// Cache is the process-wide compound store.
	Cache *cache.Cache

	// Cron periodically flushes dirty cache state to disk.
	Cron *cron.Cron

	// Logger is used to log messages, errors, and events during the application's lifecycle and operations.
	Logger *zap.Logger

	// Server is the HTTP server that serves the API.
	Server *http.Server
}

// Start starts the application and blocks until the context is cancelled,
// then shuts down, flushing any dirty cache state.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	if a.Cron != nil {
		a.Cron.Start()
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}

	if err := a.Cache.Persist(); err != nil {
		a.Logger.Error("Failed to persist compound cache on shutdown", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	a.Logger.Info("Shutdown complete")
}
