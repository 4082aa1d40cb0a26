package app

import (
	"fmt"
	"strings"
	"time"

	"yudha/internal/ai"
	"yudha/internal/arena"
	"yudha/internal/config"
	"yudha/internal/gateway/binance"
	"yudha/internal/gateway/chain"
	"yudha/internal/gateway/coingecko"
	"yudha/internal/gateway/notifier"
	"yudha/internal/logger"
	"yudha/internal/market"
	"yudha/internal/store/decisionlog"
	"yudha/internal/store/gormstore"
	arenahttp "yudha/internal/transport/http"
	"yudha/internal/treasury"
)

// simulatedStartBalance seeds the play balance when no RPC is configured.
const simulatedStartBalance = 1000

func buildApp(cfg *config.Config) (*App, error) {
	events, err := gormstore.NewGormStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	sqlDB, err := events.SQLDB()
	if err != nil {
		events.Close()
		return nil, err
	}
	decisions, err := decisionlog.NewDecisionStore(cfg.Store.Path)
	if err != nil {
		events.Close()
		return nil, fmt.Errorf("open decision store: %w", err)
	}
	// share the GORM connection so the single SQLite file has one writer
	if err := decisions.UseExternalDB(sqlDB); err != nil {
		events.Close()
		return nil, err
	}

	chainClient, evm := buildChainClient(cfg.Chain)
	provider := buildMarketProvider(cfg.Market)
	engine := ai.NewEngine(cfg.AI)
	aiConfigured := strings.TrimSpace(cfg.AI.APIKey) != ""

	var notify notifier.Notifier
	tg := cfg.Notify.Telegram
	if tg.Enabled && tg.BotToken != "" && tg.ChatID != "" {
		notify = notifier.NewTelegram(tg.BotToken, tg.ChatID)
	}

	manager := treasury.NewManager(treasury.Options{
		Chain:              chainClient,
		Events:             events,
		Notifier:           notify,
		SweepThreshold:     cfg.Treasury.SweepThreshold,
		AgentWallet:        cfg.Chain.AgentWallet,
		TreasuryAddress:    cfg.Chain.TreasuryAddress,
		EnableOnchainSweep: cfg.Chain.EnableOnchainSweep,
	})

	arenaEngine := arena.NewEngine(arena.Options{
		Personas:    cfg.Personas(),
		Market:      provider,
		Decider:     engine,
		Treasury:    manager,
		Chain:       chainClient,
		Decisions:   decisions,
		Events:      events,
		AgentWallet: cfg.Chain.AgentWallet,
	})

	server, err := arenahttp.NewServer(arenahttp.ServerConfig{
		Addr:         cfg.App.HTTPAddr,
		Engine:       arenaEngine,
		Treasury:     manager,
		History:      decisions,
		Events:       events,
		AIConfigured: aiConfigured,
		ChainEnabled: chainClient.Enabled(),
	})
	if err != nil {
		events.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		server:    server,
		events:    events,
		decisions: decisions,
		evm:       evm,
	}, nil
}

// buildChainClient returns the EVM client when an RPC endpoint is configured
// and reachable, otherwise the in-memory simulator. A failed dial degrades to
// simulation instead of aborting startup.
func buildChainClient(cfg config.ChainConfig) (chain.Client, *chain.EVMClient) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		logger.Infof("[app] no RPC configured, using simulated play balance of %d", simulatedStartBalance)
		return chain.NewSimulator(simulatedStartBalance), nil
	}
	evm, err := chain.NewEVMClient(cfg)
	if err != nil {
		logger.Warnf("[app] chain client unavailable, falling back to simulation: %v", err)
		return chain.NewSimulator(simulatedStartBalance), nil
	}
	return evm, evm
}

func buildMarketProvider(cfg config.MarketConfig) *market.Provider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	gecko := coingecko.New(coingecko.Config{
		BaseURL:       cfg.CoinGeckoBaseURL,
		HTTPTimeout:   timeout,
		RatePerMinute: cfg.RatePerMinute,
	})
	bnc := binance.New(binance.Config{
		BaseURL:     cfg.BinanceBaseURL,
		Symbol:      cfg.Symbol,
		HTTPTimeout: timeout,
	})

	var sources []market.Source
	switch strings.ToLower(strings.TrimSpace(cfg.ActiveSource)) {
	case "coingecko":
		sources = []market.Source{gecko}
	case "binance":
		sources = []market.Source{bnc}
	default: // auto
		sources = []market.Source{gecko, bnc}
	}
	return market.NewProvider(sources, market.NewSynthetic(0), timeout)
}
