package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/creditmesh/chitengine/internal/access"
	"github.com/creditmesh/chitengine/internal/chit"
	"github.com/creditmesh/chitengine/internal/config"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
	"github.com/creditmesh/chitengine/internal/reputation"
	"github.com/creditmesh/chitengine/internal/server"
	"github.com/creditmesh/chitengine/internal/server/handler"
	"github.com/creditmesh/chitengine/internal/server/ws"
	"github.com/creditmesh/chitengine/internal/service"
	"github.com/creditmesh/chitengine/internal/trust"
)

// Serve builds the engine and its API surface and runs them until the
// context is cancelled. Both standalone and chain modes serve the same
// surface; they differ only in the wired token ledger and protocol
// caller.
func (a *App) Serve(ctx context.Context, deps *Dependencies) error {
	core, err := a.buildCore(deps)
	if err != nil {
		return err
	}

	oracleSvc := service.NewOracleService(core, a.logger)
	fundSvc := service.NewFundService(core, a.logger)
	adminSvc := service.NewAdminService(core, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.logger, a.cfg.Mode)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Pingers, a.logger),
		Oracle:   handler.NewOracleHandler(oracleSvc, a.logger),
		Pools:    handler.NewPoolHandler(fundSvc, a.logger),
		Auctions: handler.NewAuctionHandler(fundSvc, a.logger),
		Admin:    handler.NewAdminHandler(adminSvc, a.logger),
		Defi:     handler.NewDefiHandler(fundSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		Limiter:         deps.RateLimiter,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: time.Duration(a.cfg.Server.RateLimitWindow) * time.Second,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// buildCore constructs the deterministic engine from the configuration
// and wraps it in the serialized apply loop.
func (a *App) buildCore(deps *Dependencies) (*service.Core, error) {
	params, admin, damping, err := engineParams(&a.cfg.Engine)
	if err != nil {
		return nil, err
	}

	capture := service.NewEventCapture()
	gate := access.NewGate(admin, capture)
	graph := trust.NewGraph(capture)

	scorer, err := reputation.NewScorer(graph, damping, capture)
	if err != nil {
		return nil, fmt.Errorf("app: scorer: %w", err)
	}

	engine, err := chit.New(params, gate, graph, scorer, deps.Token, deps.Protocols, capture)
	if err != nil {
		return nil, fmt.Errorf("app: engine: %w", err)
	}

	return service.NewCore(engine, capture, domain.WallClock{}, service.CoreOptions{
		Journal:  deps.Journal,
		Bus:      deps.SignalBus,
		Scores:   deps.Scores,
		Archive:  deps.Archive,
		Archiver: deps.Archiver,
	}, a.logger), nil
}

// engineParams translates the validated string configuration into the
// engine's fixed-point parameters.
func engineParams(cfg *config.EngineConfig) (chit.Params, domain.Account, fixed.Num, error) {
	admin, err := domain.ParseAccount(cfg.AdminAccount)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: admin_account: %w", err)
	}
	fund, err := domain.ParseAccount(cfg.FundAccount)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: fund_account: %w", err)
	}

	damping, err := fixed.Parse(cfg.DampingFactor)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: damping_factor: %w", err)
	}
	poolCap, err := fixed.Parse(cfg.PoolSizeCap)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: pool_size_cap: %w", err)
	}
	minCredit, err := fixed.Parse(cfg.MinCreditForLarge)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: min_credit_for_large: %w", err)
	}
	bonus, err := fixed.Parse(cfg.BonusAmount)
	if err != nil {
		return chit.Params{}, domain.Account{}, fixed.Num{}, fmt.Errorf("app: bonus_amount: %w", err)
	}

	params := chit.Params{
		PoolSizeCap:       poolCap,
		MinCreditForLarge: minCredit,
		MinOperatorRating: cfg.MinOperatorRating,
		BonusAmount:       bonus,
		FundAccount:       fund,
	}
	return params, admin, damping, nil
}
