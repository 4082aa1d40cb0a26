package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yudha/internal/market"

	"github.com/adshao/go-binance/v2"
)

type Config struct {
	BaseURL     string
	Symbol      string
	HTTPTimeout time.Duration
}

// Source is the secondary feed, backed by the go-binance SDK 24hr ticker.
type Source struct {
	cfg    Config
	client *binance.Client
}

func New(cfg Config) *Source {
	if strings.TrimSpace(cfg.Symbol) == "" {
		cfg.Symbol = "ETHUSDT"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() string { return market.SourceBinance }

func (s *Source) Fetch(ctx context.Context) (market.Snapshot, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(s.cfg.Symbol).Do(ctx)
	if err != nil {
		return market.Snapshot{}, err
	}
	if len(stats) == 0 {
		return market.Snapshot{}, fmt.Errorf("binance: empty ticker for %s", s.cfg.Symbol)
	}
	tick := stats[0]
	price, err := strconv.ParseFloat(tick.LastPrice, 64)
	if err != nil || price <= 0 {
		return market.Snapshot{}, fmt.Errorf("binance: bad last price %q", tick.LastPrice)
	}
	change, err := strconv.ParseFloat(tick.PriceChangePercent, 64)
	if err != nil {
		change = 0
	}
	return market.Snapshot{
		Price:      market.Round2(price),
		Change24h:  market.Round2(change),
		Volatility: market.Round4(market.DeriveVolatility(change)),
		Source:     market.SourceBinance,
		Timestamp:  time.Now().UTC(),
	}, nil
}
