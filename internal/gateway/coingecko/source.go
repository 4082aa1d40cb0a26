package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"yudha/internal/market"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.coingecko.com"
	coinID         = "ethereum"
)

type Config struct {
	BaseURL       string
	HTTPTimeout   time.Duration
	RatePerMinute float64
}

// Source reads ETH/USD spot price and 24h change from the CoinGecko simple
// price endpoint. Calls are rate limited; the free tier throttles hard.
type Source struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Source {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	return &Source{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60), 1),
	}
}

func (s *Source) Name() string { return market.SourceCoinGecko }

func (s *Source) Fetch(ctx context.Context) (market.Snapshot, error) {
	if !s.limiter.Allow() {
		return market.Snapshot{}, fmt.Errorf("coingecko rate limited locally")
	}
	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true", s.cfg.BaseURL, coinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.Snapshot{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return market.Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.Snapshot{}, fmt.Errorf("coingecko status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return market.Snapshot{}, err
	}
	price := gjson.GetBytes(body, coinID+".usd")
	if !price.Exists() || price.Float() <= 0 {
		return market.Snapshot{}, fmt.Errorf("coingecko payload missing %s.usd", coinID)
	}
	change := gjson.GetBytes(body, coinID+".usd_24h_change").Float()
	return market.Snapshot{
		Price:      market.Round2(price.Float()),
		Change24h:  market.Round2(change),
		Volatility: market.Round4(market.DeriveVolatility(change)),
		Source:     market.SourceCoinGecko,
		Timestamp:  time.Now().UTC(),
	}, nil
}
