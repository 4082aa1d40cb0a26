package config

import (
	"fmt"
	"strings"
)

var validMarketSources = map[string]bool{
	"auto":      true,
	"coingecko": true,
	"binance":   true,
}

func validate(c *Config) error {
	src := strings.ToLower(strings.TrimSpace(c.Market.ActiveSource))
	if !validMarketSources[src] {
		return fmt.Errorf("market.active_source must be one of auto/coingecko/binance, got %q", c.Market.ActiveSource)
	}
	c.Market.ActiveSource = src
	if c.Market.TimeoutSeconds <= 0 {
		return fmt.Errorf("market.timeout_seconds must be positive")
	}
	if c.Treasury.SweepThreshold <= 0 {
		return fmt.Errorf("treasury.sweep_threshold must be positive")
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	seen := map[string]bool{}
	for i, p := range c.Agents {
		key := NormalizeAgentKey(p.Key)
		if key == "" {
			return fmt.Errorf("agents[%d]: key cannot be empty", i)
		}
		if seen[key] {
			return fmt.Errorf("agents[%d]: duplicate key %s", i, key)
		}
		seen[key] = true
		if strings.TrimSpace(p.Personality) == "" {
			return fmt.Errorf("agents[%d] (%s): personality cannot be empty", i, key)
		}
	}
	return nil
}
