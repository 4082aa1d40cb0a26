package chain

import (
	"context"
	"fmt"
	"sync"
)

// TxResult is the synchronous outcome of a submitted write. The cycle never
// proceeds on a pending transaction; confirmation is awaited first.
type TxResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
}

// SweepEvent is one ProfitSwept log from the treasury contract.
type SweepEvent struct {
	Agent       string `json:"agent"`
	Amount      string `json:"amount"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
}

// Client is the ledger RPC surface the pipeline depends on. Amounts cross
// this boundary in human units; implementations convert to base units.
type Client interface {
	// Enabled reports whether real on-chain writes can be submitted.
	Enabled() bool
	// ArenaBalance reads the bounded play-token balance for a wallet.
	// Returns 0 without error when the arena contract is not configured.
	ArenaBalance(ctx context.Context, wallet string) (float64, error)
	// DeductPlay burns play tokens from a wallet and awaits confirmation.
	DeductPlay(ctx context.Context, wallet string, amount float64) (TxResult, error)
	// SweepProfit transfers accumulated profit to the treasury and awaits
	// confirmation.
	SweepProfit(ctx context.Context, agentWallet string, amount float64) (TxResult, error)
	// ProfitSweptEvents lists recent sweep logs; nil bounds mean
	// "last ~10k blocks" and "latest".
	ProfitSweptEvents(ctx context.Context, fromBlock, toBlock *int64) ([]SweepEvent, error)
}

// Simulator is the Client used when no RPC endpoint is configured. Reads
// return an adjustable in-memory balance; writes succeed locally with no
// transaction reference.
type Simulator struct {
	mu      sync.Mutex
	balance float64
}

func NewSimulator(balance float64) *Simulator {
	return &Simulator{balance: balance}
}

func (s *Simulator) Enabled() bool { return false }

func (s *Simulator) ArenaBalance(_ context.Context, _ string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *Simulator) DeductPlay(_ context.Context, _ string, amount float64) (TxResult, error) {
	if amount <= 0 {
		return TxResult{}, fmt.Errorf("deduct amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount > s.balance {
		amount = s.balance
	}
	s.balance -= amount
	return TxResult{Success: true}, nil
}

func (s *Simulator) SweepProfit(context.Context, string, float64) (TxResult, error) {
	return TxResult{}, fmt.Errorf("on-chain sweep not configured")
}

func (s *Simulator) ProfitSweptEvents(context.Context, *int64, *int64) ([]SweepEvent, error) {
	return nil, nil
}

// SetBalance is a test/dev hook.
func (s *Simulator) SetBalance(v float64) {
	s.mu.Lock()
	s.balance = v
	s.mu.Unlock()
}
