package treasury

import (
	"context"
	"fmt"
	"sync"

	"yudha/internal/gateway/chain"
	"yudha/internal/gateway/notifier"
	"yudha/internal/logger"
)

// Official Circle USDC on Sepolia; reported in stats for frontend display.
const USDCAddress = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"

// EventRecorder appends to the treasury audit trail. A nil txHash means the
// corresponding on-chain action was only simulated or never confirmed.
type EventRecorder interface {
	RecordTreasuryEvent(eventType, wallet string, amount float64, txHash *string, metadata map[string]any) error
}

// Options wires a Manager.
type Options struct {
	Ledger             Ledger
	Chain              chain.Client
	Events             EventRecorder
	Notifier           notifier.Notifier
	SweepThreshold     float64
	AgentWallet        string
	TreasuryAddress    string
	EnableOnchainSweep bool
}

// Manager accumulates realized profit per agent and sweeps it to the
// treasury once the threshold is crossed. The accumulator resets after every
// sweep attempt, success or not: a lost sweep is acceptable in this
// simulation, silent double-counting is not.
type Manager struct {
	ledger          Ledger
	chain           chain.Client
	events          EventRecorder
	notify          notifier.Notifier
	threshold       float64
	agentWallet     string
	treasuryAddress string
	onchainSweep    bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewManager(opts Options) *Manager {
	if opts.Ledger == nil {
		opts.Ledger = NewMemoryLedger()
	}
	if opts.SweepThreshold <= 0 {
		opts.SweepThreshold = 100
	}
	return &Manager{
		ledger:          opts.Ledger,
		chain:           opts.Chain,
		events:          opts.Events,
		notify:          opts.Notifier,
		threshold:       opts.SweepThreshold,
		agentWallet:     opts.AgentWallet,
		treasuryAddress: opts.TreasuryAddress,
		onchainSweep:    opts.EnableOnchainSweep,
	}
}

// keyLock serializes accumulate-and-maybe-sweep per agent key, so
// overlapping HTTP cycles cannot lose updates or double-sweep.
func (m *Manager) keyLock(agentKey string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	if m.locks == nil {
		m.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := m.locks[agentKey]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[agentKey] = lock
	}
	return lock
}

// RecordProfit adds the requested amount to the agent's accumulator and
// triggers a sweep of the full total when the threshold is reached.
func (m *Manager) RecordProfit(ctx context.Context, agentKey string, amount float64) {
	if amount <= 0 {
		return
	}
	lock := m.keyLock(agentKey)
	lock.Lock()
	defer lock.Unlock()

	total := m.ledger.Add(agentKey, amount)
	logger.Infof("[treasury] profit recorded for %s: +%.2f USDC, total %.2f", agentKey, amount, total)
	if total >= m.threshold {
		m.sweep(ctx, agentKey, total)
		m.ledger.Reset(agentKey)
	}
}

// sweep submits the full accumulated amount. The caller resets the
// accumulator unconditionally afterwards; failures are logged, not retried.
func (m *Manager) sweep(ctx context.Context, agentKey string, amount float64) {
	onChain := m.onchainSweep && m.chain != nil && m.chain.Enabled() &&
		m.agentWallet != "" && m.treasuryAddress != ""
	if !onChain {
		logger.Infof("[treasury] SWEEP (simulated) %.2f USDC from %s to treasury", amount, agentKey)
		m.recordSweepEvent(agentKey, amount, nil, true)
		m.notifySweep(agentKey, amount, "", true)
		return
	}
	res, err := m.chain.SweepProfit(ctx, m.agentWallet, amount)
	if err != nil || !res.Success {
		logger.Errorf("[treasury] SWEEP failed for %s (%.2f USDC): %v", agentKey, amount, err)
		m.recordSweepEvent(agentKey, amount, nil, false)
		return
	}
	logger.Infof("[treasury] SWEEP confirmed for %s: %.2f USDC tx=%s", agentKey, amount, res.TxHash)
	m.recordSweepEvent(agentKey, amount, &res.TxHash, false)
	m.notifySweep(agentKey, amount, res.TxHash, false)
}

func (m *Manager) recordSweepEvent(agentKey string, amount float64, txHash *string, simulated bool) {
	if m.events == nil {
		return
	}
	meta := map[string]any{"agent_key": agentKey, "simulated": simulated}
	if err := m.events.RecordTreasuryEvent("sweep", m.agentWallet, amount, txHash, meta); err != nil {
		logger.Warnf("[treasury] sweep event persist failed: %v", err)
	}
}

func (m *Manager) notifySweep(agentKey string, amount float64, txHash string, simulated bool) {
	if m.notify == nil {
		return
	}
	text := fmt.Sprintf("*Treasury sweep* %.2f USDC from `%s`", amount, agentKey)
	if simulated {
		text += " (simulated)"
	} else if txHash != "" {
		text += fmt.Sprintf("\ntx: `%s`", txHash)
	}
	if err := m.notify.SendText(text); err != nil {
		logger.Warnf("[treasury] telegram notify failed: %v", err)
	}
}

// Stats is the lightweight treasury view.
type Stats struct {
	TotalProfits    map[string]float64 `json:"totalProfits"`
	USDC            string             `json:"usdc"`
	TreasuryAddress string             `json:"treasuryAddress"`
	OnChainEnabled  bool               `json:"onChainEnabled"`
}

// StatsWithEvents adds recent ProfitSwept logs from the external ledger.
type StatsWithEvents struct {
	Stats
	Events []chain.SweepEvent `json:"events"`
}

func (m *Manager) Stats() Stats {
	onChain := m.chain != nil && m.chain.Enabled() && m.agentWallet != ""
	addr := m.treasuryAddress
	if addr == "" {
		addr = "0x"
	}
	return Stats{
		TotalProfits:    m.ledger.Totals(),
		USDC:            USDCAddress,
		TreasuryAddress: addr,
		OnChainEnabled:  onChain,
	}
}

func (m *Manager) StatsWithEvents(ctx context.Context, fromBlock, toBlock *int64) StatsWithEvents {
	out := StatsWithEvents{Stats: m.Stats(), Events: []chain.SweepEvent{}}
	if m.chain == nil || !m.chain.Enabled() {
		return out
	}
	events, err := m.chain.ProfitSweptEvents(ctx, fromBlock, toBlock)
	if err != nil {
		logger.Warnf("[treasury] event fetch failed: %v", err)
		return out
	}
	if events != nil {
		out.Events = events
	}
	return out
}
