package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type keySet map[string]bool

func (k keySet) mark(key string) { k[key] = true }
func (k keySet) has(key string) bool {
	return k[key]
}

// Load reads a yaml config file, applies environment overrides, fills
// defaults for keys the file left unset and validates the result.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	flattenConfigKeys("", v.AllSettings(), setKeys)
	// Defaults first, then env: the environment must win over a default
	// (ENABLE_ONCHAIN_SWEEP=0 with the key absent from the file).
	cfg.applyDefaults(setKeys)
	cfg.applyEnvOverrides()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides maps the deployment environment variables onto the
// config, taking precedence over file values. Secrets normally arrive this
// way rather than through yaml.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env  string
		dest *string
	}{
		{"OPENROUTER_API_KEY", &c.AI.APIKey},
		{"OPENROUTER_MODEL", &c.AI.Model},
		{"RPC_URL", &c.Chain.RPCURL},
		{"ARC_TREASURY_ADDRESS", &c.Chain.TreasuryAddress},
		{"ARENA_TREASURY_ADDRESS", &c.Chain.ArenaAddress},
		{"TREASURY_OWNER_PRIVATE_KEY", &c.Chain.TreasuryOwnerKey},
		{"AGENT_WALLET", &c.Chain.AgentWallet},
		{"AGENT_WALLET_PRIVATE_KEY", &c.Chain.AgentWalletKey},
		{"TELEGRAM_BOT_TOKEN", &c.Notify.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID},
		{"SQLITE_DB_PATH", &c.Store.Path},
	}
	for _, o := range overrides {
		if val := strings.TrimSpace(os.Getenv(o.env)); val != "" {
			*o.dest = val
		}
	}
	if val := strings.TrimSpace(os.Getenv("ENABLE_ONCHAIN_SWEEP")); val != "" {
		c.Chain.EnableOnchainSweep = val != "false" && val != "0"
	}
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	case map[any]any:
		for k, v := range val {
			keyStr, ok := k.(string)
			if !ok {
				continue
			}
			next := strings.ToLower(strings.TrimSpace(keyStr))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	case []any:
		if prefix != "" {
			dest.mark(prefix)
		}
		for _, item := range val {
			flattenConfigKeys(prefix, item, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
