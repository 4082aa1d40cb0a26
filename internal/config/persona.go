package config

import "strings"

// AgentPersona is a fixed trading persona. Personas are defined at process
// start and never mutated.
type AgentPersona struct {
	Key         string `toml:"key" json:"-"`
	Name        string `toml:"name" json:"name"`
	Personality string `toml:"personality" json:"personality"`
	Strategy    string `toml:"strategy" json:"strategy"`
	Protocol    string `toml:"protocol" json:"protocol"`
	// EmitBridgeEvents marks cross-chain personas whose non-HOLD decisions
	// append a bridge_requested audit event.
	EmitBridgeEvents bool `toml:"emit_bridge_events" json:"-"`
}

// NormalizeAgentKey canonicalizes a persona key for lookups.
func NormalizeAgentKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// DefaultPersonas returns the four reference personas in stable order.
func DefaultPersonas() []AgentPersona {
	return []AgentPersona{
		{
			Key:  "DEGEN_DAVE",
			Name: "Degen Dave",
			Personality: "You are Degen Dave, an impulsive, high-risk momentum trader. " +
				"You love volatility and hate missing out on a pump. " +
				"You use Yellow Network for high-frequency trades. " +
				"Your goal is maximum alpha with high risk. " +
				"You often use terms like 'LFG', 'Moon soon', and 'Apeing in'.",
			Strategy: "Momentum Trading",
			Protocol: "Yellow Network",
		},
		{
			Key:  "STABLE_SARAH",
			Name: "Stable Sarah",
			Personality: "You are Stable Sarah, a cautious liquidity provider who hates drawdowns. " +
				"You prioritize capital preservation and passive yield. " +
				"You use Uniswap v4 Hooks to manage liquidity ranges based on volatility. " +
				"If volatility is high, you widen your range. If calm, you concentrate it. " +
				"You have limited play tokens per game; never suggest an amount above your current play balance.",
			Strategy: "Liquidity Provision",
			Protocol: "Uniswap v4",
		},
		{
			Key:  "CHAD_BRIDGE",
			Name: "Chad Bridge",
			Personality: "You are Chad Bridge, an agnostic opportunity seeker. " +
				"You don't care about loyalty to a chain; you follow the yield and price gaps. " +
				"You use LI.FI to bridge funds automatically to capture arbitrage opportunities between chains.",
			Strategy:         "Cross-chain Arbitrage",
			Protocol:         "LI.FI",
			EmitBridgeEvents: true,
		},
		{
			Key:  "CORPORATE_KEN",
			Name: "Corporate Ken",
			Personality: "You are Corporate Ken, a greedy but strictly risk-managed treasury manager. " +
				"You manage the \"House Funds\" using Arc (USDC). " +
				"Your job is to sweep profits from the other agents into stable USDC to lock in gains.",
			Strategy: "Treasury Management",
			Protocol: "Arc (USDC)",
		},
	}
}

// Personas returns the configured persona set, falling back to the reference
// four when the config declares none. Keys are normalized; order is stable.
func (c *Config) Personas() []AgentPersona {
	if c == nil || len(c.Agents) == 0 {
		return DefaultPersonas()
	}
	out := make([]AgentPersona, 0, len(c.Agents))
	for _, p := range c.Agents {
		p.Key = NormalizeAgentKey(p.Key)
		out = append(out, p)
	}
	return out
}

// FindPersona looks up a persona by key (case-insensitive).
func (c *Config) FindPersona(key string) (AgentPersona, bool) {
	key = NormalizeAgentKey(key)
	for _, p := range c.Personas() {
		if p.Key == key {
			return p, true
		}
	}
	return AgentPersona{}, false
}
