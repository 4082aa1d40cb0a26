package treasury

import (
	"context"
	"fmt"
	"testing"

	"yudha/internal/gateway/chain"

	"github.com/stretchr/testify/assert"
)

type fakeChain struct {
	enabled   bool
	sweepErr  error
	sweepFail bool
	sweeps    []float64
}

func (f *fakeChain) Enabled() bool { return f.enabled }

func (f *fakeChain) ArenaBalance(ctx context.Context, wallet string) (float64, error) {
	return 0, nil
}

func (f *fakeChain) DeductPlay(ctx context.Context, wallet string, amount float64) (chain.TxResult, error) {
	return chain.TxResult{Success: true}, nil
}

func (f *fakeChain) SweepProfit(ctx context.Context, agentWallet string, amount float64) (chain.TxResult, error) {
	f.sweeps = append(f.sweeps, amount)
	if f.sweepErr != nil {
		return chain.TxResult{}, f.sweepErr
	}
	return chain.TxResult{Success: !f.sweepFail, TxHash: "0xabc"}, nil
}

func (f *fakeChain) ProfitSweptEvents(ctx context.Context, fromBlock, toBlock *int64) ([]chain.SweepEvent, error) {
	return []chain.SweepEvent{{Agent: "0x1", Amount: "110000000", BlockNumber: 42, TxHash: "0xdead"}}, nil
}

type recordedEvent struct {
	eventType string
	wallet    string
	amount    float64
	txHash    *string
	metadata  map[string]any
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) RecordTreasuryEvent(eventType, wallet string, amount float64, txHash *string, metadata map[string]any) error {
	f.events = append(f.events, recordedEvent{eventType, wallet, amount, txHash, metadata})
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) SendText(text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func TestRecordProfitBelowThreshold(t *testing.T) {
	ch := &fakeChain{enabled: true}
	m := NewManager(Options{
		Chain: ch, SweepThreshold: 100,
		AgentWallet: "0xagent", TreasuryAddress: "0xtreasury", EnableOnchainSweep: true,
	})

	m.RecordProfit(context.Background(), "DEGEN_DAVE", 80)

	assert.Empty(t, ch.sweeps)
	assert.InDelta(t, 80, m.Stats().TotalProfits["DEGEN_DAVE"], 1e-9)
}

func TestRecordProfitSweepsFullTotalAndResets(t *testing.T) {
	ch := &fakeChain{enabled: true}
	rec := &fakeRecorder{}
	m := NewManager(Options{
		Chain: ch, Events: rec, SweepThreshold: 100,
		AgentWallet: "0xagent", TreasuryAddress: "0xtreasury", EnableOnchainSweep: true,
	})

	m.RecordProfit(context.Background(), "DEGEN_DAVE", 80)
	m.RecordProfit(context.Background(), "DEGEN_DAVE", 30)

	assert.Equal(t, []float64{110}, ch.sweeps)
	assert.Zero(t, m.Stats().TotalProfits["DEGEN_DAVE"])
	if assert.Len(t, rec.events, 1) {
		evt := rec.events[0]
		assert.Equal(t, "sweep", evt.eventType)
		assert.InDelta(t, 110, evt.amount, 1e-9)
		if assert.NotNil(t, evt.txHash) {
			assert.Equal(t, "0xabc", *evt.txHash)
		}
		assert.Equal(t, false, evt.metadata["simulated"])
	}
}

func TestFailedSweepStillResets(t *testing.T) {
	ch := &fakeChain{enabled: true, sweepErr: fmt.Errorf("rpc down")}
	rec := &fakeRecorder{}
	m := NewManager(Options{
		Chain: ch, Events: rec, SweepThreshold: 100,
		AgentWallet: "0xagent", TreasuryAddress: "0xtreasury", EnableOnchainSweep: true,
	})

	m.RecordProfit(context.Background(), "STABLE_SARAH", 150)

	assert.Equal(t, []float64{150}, ch.sweeps)
	assert.Zero(t, m.Stats().TotalProfits["STABLE_SARAH"])
	if assert.Len(t, rec.events, 1) {
		assert.Nil(t, rec.events[0].txHash)
	}
}

func TestSimulatedSweepWhenChainDisabled(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewManager(Options{
		Chain: chain.NewSimulator(1000), Events: rec, SweepThreshold: 100,
		AgentWallet: "0xagent", TreasuryAddress: "0xtreasury", EnableOnchainSweep: true,
	})

	m.RecordProfit(context.Background(), "CHAD_BRIDGE", 120)

	assert.Zero(t, m.Stats().TotalProfits["CHAD_BRIDGE"])
	if assert.Len(t, rec.events, 1) {
		evt := rec.events[0]
		assert.Nil(t, evt.txHash)
		assert.Equal(t, true, evt.metadata["simulated"])
	}
}

func TestSweepNotifies(t *testing.T) {
	ch := &fakeChain{enabled: true}
	n := &fakeNotifier{}
	m := NewManager(Options{
		Chain: ch, Notifier: n, SweepThreshold: 100,
		AgentWallet: "0xagent", TreasuryAddress: "0xtreasury", EnableOnchainSweep: true,
	})

	m.RecordProfit(context.Background(), "CORPORATE_KEN", 200)

	if assert.Len(t, n.messages, 1) {
		assert.Contains(t, n.messages[0], "CORPORATE_KEN")
		assert.Contains(t, n.messages[0], "0xabc")
	}
}

func TestRecordProfitIgnoresNonPositive(t *testing.T) {
	m := NewManager(Options{SweepThreshold: 100})

	m.RecordProfit(context.Background(), "DEGEN_DAVE", 0)
	m.RecordProfit(context.Background(), "DEGEN_DAVE", -5)

	assert.Empty(t, m.Stats().TotalProfits["DEGEN_DAVE"])
}

func TestStatsWithEvents(t *testing.T) {
	ch := &fakeChain{enabled: true}
	m := NewManager(Options{Chain: ch, SweepThreshold: 100, AgentWallet: "0xagent", TreasuryAddress: "0xtreasury"})

	out := m.StatsWithEvents(context.Background(), nil, nil)

	assert.True(t, out.OnChainEnabled)
	if assert.Len(t, out.Events, 1) {
		assert.Equal(t, uint64(42), out.Events[0].BlockNumber)
	}
}
