package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":3001"
	defaultMarketSource     = "auto"
	defaultCoinGeckoREST    = "https://api.coingecko.com"
	defaultBinanceREST      = "https://api.binance.com"
	defaultMarketSymbol     = "ETHUSDT"
	defaultMarketTimeout    = 5
	defaultMarketRatePerMin = 30
	defaultAIURL            = "https://openrouter.ai/api/v1"
	defaultAIModel          = "meta-llama/llama-3-8b-instruct:free"
	defaultAITimeout        = 60
	defaultAIMaxRetries     = 2
	defaultAIReferer        = "https://github.com/yudha-arena/yudha"
	defaultAITitle          = "Yudha AI Trading Arena"
	defaultConfirmTimeout   = 120
	defaultSweepThreshold   = 100
	defaultStorePath        = "data/yudha.sqlite"
)

// applyDefaults fills zero values for keys the config file did not set.
// The keySet distinguishes "explicitly set to empty/zero" from "absent".
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Chain.applyDefaults(keys)
	c.Treasury.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func defaultString(keys keySet, key string, dest *string, def string) {
	if strings.TrimSpace(*dest) == "" && !keys.has(key) {
		*dest = def
	}
}

func defaultInt(keys keySet, key string, dest *int, def int) {
	if *dest == 0 && !keys.has(key) {
		*dest = def
	}
}

func defaultFloat(keys keySet, key string, dest *float64, def float64) {
	if *dest == 0 && !keys.has(key) {
		*dest = def
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	defaultString(keys, "app.env", &a.Env, defaultAppEnv)
	defaultString(keys, "app.log_level", &a.LogLevel, defaultAppLogLevel)
	defaultString(keys, "app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	defaultString(keys, "market.active_source", &m.ActiveSource, defaultMarketSource)
	defaultString(keys, "market.coingecko_base_url", &m.CoinGeckoBaseURL, defaultCoinGeckoREST)
	defaultString(keys, "market.binance_base_url", &m.BinanceBaseURL, defaultBinanceREST)
	defaultString(keys, "market.symbol", &m.Symbol, defaultMarketSymbol)
	defaultInt(keys, "market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout)
	defaultFloat(keys, "market.rate_per_minute", &m.RatePerMinute, defaultMarketRatePerMin)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	defaultString(keys, "ai.api_url", &a.APIURL, defaultAIURL)
	defaultString(keys, "ai.model", &a.Model, defaultAIModel)
	defaultInt(keys, "ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout)
	defaultInt(keys, "ai.max_retries", &a.MaxRetries, defaultAIMaxRetries)
	defaultString(keys, "ai.referer", &a.Referer, defaultAIReferer)
	defaultString(keys, "ai.title", &a.Title, defaultAITitle)
}

func (ch *ChainConfig) applyDefaults(keys keySet) {
	defaultInt(keys, "chain.confirm_timeout_seconds", &ch.ConfirmTimeoutSeconds, defaultConfirmTimeout)
	if !keys.has("chain.enable_onchain_sweep") {
		ch.EnableOnchainSweep = true
	}
}

func (t *TreasuryConfig) applyDefaults(keys keySet) {
	defaultFloat(keys, "treasury.sweep_threshold", &t.SweepThreshold, defaultSweepThreshold)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	defaultString(keys, "store.path", &s.Path, defaultStorePath)
}
