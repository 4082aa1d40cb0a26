package treasury

import "sync"

// Ledger tracks per-agent accumulated profit. It is deliberately dumb
// storage: the Manager owns the accumulate-and-maybe-sweep critical section,
// so a durable or distributed implementation can be swapped in without
// touching settlement logic.
type Ledger interface {
	// Add records profit and returns the new total for the key.
	Add(agentKey string, amount float64) float64
	// Reset zeroes the key's total and returns the amount cleared.
	Reset(agentKey string) float64
	// Totals returns a copy of the accumulator map.
	Totals() map[string]float64
}

// MemoryLedger is the reference Ledger: process memory only, initialized
// empty at start, not persisted across restarts.
type MemoryLedger struct {
	mu     sync.Mutex
	totals map[string]float64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{totals: make(map[string]float64)}
}

func (l *MemoryLedger) Add(agentKey string, amount float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totals[agentKey] += amount
	return l.totals[agentKey]
}

func (l *MemoryLedger) Reset(agentKey string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	cleared := l.totals[agentKey]
	l.totals[agentKey] = 0
	return cleared
}

func (l *MemoryLedger) Totals() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64, len(l.totals))
	for k, v := range l.totals {
		out[k] = v
	}
	return out
}
