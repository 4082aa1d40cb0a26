package config

// Config is the top-level configuration for the arena backend.
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	AI       AIConfig       `toml:"ai"`
	Chain    ChainConfig    `toml:"chain"`
	Treasury TreasuryConfig `toml:"treasury"`
	Store    StoreConfig    `toml:"store"`
	Notify   NotifyConfig   `toml:"notify"`
	Agents   []AgentPersona `toml:"agents"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// MarketConfig selects the price feed chain. ActiveSource is one of
// "auto" (primary then secondary), "coingecko" or "binance"; the synthetic
// generator always terminates the chain.
type MarketConfig struct {
	ActiveSource     string  `toml:"active_source"`
	CoinGeckoBaseURL string  `toml:"coingecko_base_url"`
	BinanceBaseURL   string  `toml:"binance_base_url"`
	Symbol           string  `toml:"symbol"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RatePerMinute    float64 `toml:"rate_per_minute"`
}

// AIConfig describes the OpenRouter-compatible decision endpoint.
// DevFallback enables synthetic decisions when no API key is set; it must
// stay off in production so a missing upstream surfaces as an error.
type AIConfig struct {
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	DevFallback    bool   `toml:"dev_fallback"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
}

type ChainConfig struct {
	RPCURL                string `toml:"rpc_url"`
	ArenaAddress          string `toml:"arena_address"`
	TreasuryAddress       string `toml:"treasury_address"`
	TreasuryOwnerKey      string `toml:"treasury_owner_key"`
	AgentWallet           string `toml:"agent_wallet"`
	AgentWalletKey        string `toml:"agent_wallet_key"`
	EnableOnchainSweep    bool   `toml:"enable_onchain_sweep"`
	ConfirmTimeoutSeconds int    `toml:"confirm_timeout_seconds"`
}

// Enabled reports whether real on-chain writes are possible: RPC reachable
// address-wise, treasury deployed and a signer present.
func (c ChainConfig) Enabled() bool {
	return c.RPCURL != "" && c.TreasuryOwnerKey != "" && c.TreasuryAddress != ""
}

type TreasuryConfig struct {
	SweepThreshold float64 `toml:"sweep_threshold"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}
