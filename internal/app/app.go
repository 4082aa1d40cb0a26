package app

import (
	"context"
	"fmt"

	"yudha/internal/config"
	"yudha/internal/gateway/chain"
	"yudha/internal/logger"
	"yudha/internal/store/decisionlog"
	"yudha/internal/store/gormstore"
	arenahttp "yudha/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App owns application wiring: config, stores, the chain client and the
// HTTP server.
type App struct {
	cfg       *config.Config
	server    *arenahttp.Server
	events    *gormstore.GormStore
	decisions *decisionlog.DecisionStore
	evm       *chain.EVMClient
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildApp(cfg)
}

// Run serves until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("[app] arena backend listening on %s (env=%s)", a.server.Addr(), a.cfg.App.Env)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	a.Close()
	return err
}

// Close releases stores and the chain connection.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.decisions != nil {
		_ = a.decisions.Close()
	}
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.evm != nil {
		a.evm.Close()
	}
}
