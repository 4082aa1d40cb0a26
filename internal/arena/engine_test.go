package arena

import (
	"context"
	"fmt"
	"testing"
	"time"

	"yudha/internal/ai"
	"yudha/internal/config"
	"yudha/internal/gateway/chain"
	"yudha/internal/market"
	"yudha/internal/store/decisionlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMarket struct {
	snap  market.Snapshot
	calls int
}

func (f *fixedMarket) Acquire(context.Context) market.Snapshot {
	f.calls++
	return f.snap
}

// tickingMarket returns a different price on every call.
type tickingMarket struct {
	calls int
}

func (m *tickingMarket) Acquire(context.Context) market.Snapshot {
	m.calls++
	return market.Snapshot{
		Price:     float64(2500 + m.calls),
		Source:    market.SourceSynthetic,
		Timestamp: time.Now(),
	}
}

type scriptedDecider struct {
	decisions map[string]ai.Decision
	errs      map[string]error
	ceilings  map[string]*float64
}

func (d *scriptedDecider) Decide(_ context.Context, agentName, _ string, _ market.Snapshot, ceiling *float64) (ai.Decision, error) {
	if d.ceilings == nil {
		d.ceilings = map[string]*float64{}
	}
	if ceiling != nil {
		c := *ceiling
		d.ceilings[agentName] = &c
	} else {
		d.ceilings[agentName] = nil
	}
	if err := d.errs[agentName]; err != nil {
		return ai.Decision{}, err
	}
	return d.decisions[agentName], nil
}

type recordedProfit struct {
	agentKey string
	amount   float64
}

type fakeTreasury struct {
	profits []recordedProfit
}

func (f *fakeTreasury) RecordProfit(_ context.Context, agentKey string, amount float64) {
	f.profits = append(f.profits, recordedProfit{agentKey, amount})
}

type balanceChain struct {
	chain.Client
	balance    float64
	balanceErr error
	deducts    []float64
	deductErr  error
}

func (c *balanceChain) Enabled() bool { return false }

func (c *balanceChain) ArenaBalance(context.Context, string) (float64, error) {
	return c.balance, c.balanceErr
}

func (c *balanceChain) DeductPlay(_ context.Context, _ string, amount float64) (chain.TxResult, error) {
	if c.deductErr != nil {
		return chain.TxResult{}, c.deductErr
	}
	c.deducts = append(c.deducts, amount)
	return chain.TxResult{Success: true}, nil
}

type memorySink struct {
	snapshots []decisionlog.SnapshotRecord
	decisions []decisionlog.DecisionRecord
	failAll   bool
}

func (m *memorySink) InsertSnapshot(_ context.Context, rec decisionlog.SnapshotRecord) (int64, error) {
	if m.failAll {
		return 0, fmt.Errorf("disk full")
	}
	m.snapshots = append(m.snapshots, rec)
	return int64(len(m.snapshots)), nil
}

func (m *memorySink) InsertDecision(_ context.Context, rec decisionlog.DecisionRecord) (int64, error) {
	if m.failAll {
		return 0, fmt.Errorf("disk full")
	}
	m.decisions = append(m.decisions, rec)
	return int64(len(m.decisions)), nil
}

type eventSink struct {
	events []string
}

func (e *eventSink) RecordTreasuryEvent(eventType, _ string, _ float64, _ *string, _ map[string]any) error {
	e.events = append(e.events, eventType)
	return nil
}

func testSnapshot() market.Snapshot {
	return market.Snapshot{Price: 2500, Change24h: 2.1, Volatility: 0.021, Source: market.SourceSynthetic, Timestamp: time.Now()}
}

func persona(key, name string, bridge bool) config.AgentPersona {
	return config.AgentPersona{Key: key, Name: name, Personality: "persona prompt", Protocol: "Yellow Network", EmitBridgeEvents: bridge}
}

func TestRunSingleUnknownAgent(t *testing.T) {
	e := NewEngine(Options{
		Market:  &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{},
		Chain:   &balanceChain{balance: 100},
	})

	_, err := e.RunSingle(context.Background(), "NOBODY")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRunSingleSettlesClampedToBalance(t *testing.T) {
	ch := &balanceChain{balance: 50}
	treasury := &fakeTreasury{}
	sink := &memorySink{}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{persona("DEGEN_DAVE", "Degen Dave", false)},
		Market:   &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{decisions: map[string]ai.Decision{
			"Degen Dave": {Action: ai.ActionBuy, Amount: 80, Thought: "LFG"},
		}},
		Treasury:    treasury,
		Chain:       ch,
		Decisions:   sink,
		AgentWallet: "0xagent",
	})

	result, err := e.RunSingle(context.Background(), "degen_dave")
	require.NoError(t, err)

	require.NotNil(t, result.PlayDeducted)
	assert.Equal(t, 50.0, *result.PlayDeducted)
	assert.Equal(t, []float64{50}, ch.deducts)
	// profit tracks the requested amount, not the clamped one
	require.Len(t, treasury.profits, 1)
	assert.Equal(t, 80.0, treasury.profits[0].amount)
	require.Len(t, sink.decisions, 1)
	require.NotNil(t, sink.decisions[0].PlayDeducted)
	assert.Equal(t, 50.0, *sink.decisions[0].PlayDeducted)
	assert.Equal(t, "Yellow Network", sink.decisions[0].Protocol)
	require.NotNil(t, sink.decisions[0].PlayerWallet)
	assert.Equal(t, "0xagent", *sink.decisions[0].PlayerWallet)
	assert.NotEmpty(t, result.TraceID)
}

func TestRunSingleHoldSkipsSettlement(t *testing.T) {
	ch := &balanceChain{balance: 100}
	treasury := &fakeTreasury{}
	sink := &memorySink{}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{persona("STABLE_SARAH", "Stable Sarah", false)},
		Market:   &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{decisions: map[string]ai.Decision{
			"Stable Sarah": {Action: ai.ActionHold, Amount: 0, Thought: "waiting"},
		}},
		Treasury:  treasury,
		Chain:     ch,
		Decisions: sink,
	})

	result, err := e.RunSingle(context.Background(), "STABLE_SARAH")
	require.NoError(t, err)

	// no deduction occurred, so the amount is null, not zero
	assert.Nil(t, result.PlayDeducted)
	require.Len(t, sink.decisions, 1)
	assert.Nil(t, sink.decisions[0].PlayDeducted)
	assert.Empty(t, ch.deducts)
	assert.Empty(t, treasury.profits)
}

func TestRunSingleBalanceReadFailure(t *testing.T) {
	ch := &balanceChain{balanceErr: fmt.Errorf("rpc down")}
	decider := &scriptedDecider{decisions: map[string]ai.Decision{
		"Degen Dave": {Action: ai.ActionBuy, Amount: 20, Thought: "LFG"},
	}}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{persona("DEGEN_DAVE", "Degen Dave", false)},
		Market:   &fixedMarket{snap: testSnapshot()},
		Decider:  decider,
		Chain:    ch,
	})

	result, err := e.RunSingle(context.Background(), "DEGEN_DAVE")
	require.NoError(t, err)

	assert.Nil(t, result.PlayDeducted)
	assert.Empty(t, ch.deducts)
	assert.Nil(t, decider.ceilings["Degen Dave"])
}

func TestRunBatchSharesBalance(t *testing.T) {
	ch := &balanceChain{balance: 100}
	decider := &scriptedDecider{decisions: map[string]ai.Decision{
		"Degen Dave":   {Action: ai.ActionBuy, Amount: 80, Thought: "LFG"},
		"Stable Sarah": {Action: ai.ActionSell, Amount: 80, Thought: "derisking"},
	}}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{
			persona("DEGEN_DAVE", "Degen Dave", false),
			persona("STABLE_SARAH", "Stable Sarah", false),
		},
		Market:  &fixedMarket{snap: testSnapshot()},
		Decider: decider,
		Chain:   ch,
	})

	entries := e.RunBatch(context.Background())
	require.Len(t, entries, 2)

	require.NotNil(t, entries[0].Result)
	require.NotNil(t, entries[0].Result.PlayDeducted)
	assert.Equal(t, 80.0, *entries[0].Result.PlayDeducted)
	require.NotNil(t, entries[1].Result)
	require.NotNil(t, entries[1].Result.PlayDeducted)
	assert.Equal(t, 20.0, *entries[1].Result.PlayDeducted)
	// second agent saw the already-shrunk balance
	require.NotNil(t, decider.ceilings["Stable Sarah"])
	assert.Equal(t, 20.0, *decider.ceilings["Stable Sarah"])
	// one trace id spans the whole batch
	assert.Equal(t, entries[0].Result.TraceID, entries[1].Result.TraceID)
}

func TestRunBatchFreshSnapshotPerAgent(t *testing.T) {
	mkt := &tickingMarket{}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{
			persona("DEGEN_DAVE", "Degen Dave", false),
			persona("STABLE_SARAH", "Stable Sarah", false),
		},
		Market: mkt,
		Decider: &scriptedDecider{decisions: map[string]ai.Decision{
			"Degen Dave":   {Action: ai.ActionHold, Thought: "waiting"},
			"Stable Sarah": {Action: ai.ActionHold, Thought: "waiting"},
		}},
		Chain: &balanceChain{balance: 100},
	})

	entries := e.RunBatch(context.Background())
	require.Len(t, entries, 2)

	// each agent observes its own snapshot, which may differ due to feed timing
	assert.Equal(t, 2, mkt.calls)
	require.NotNil(t, entries[0].Result)
	require.NotNil(t, entries[1].Result)
	assert.NotEqual(t, entries[0].Result.Snapshot.Price, entries[1].Result.Snapshot.Price)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	e := NewEngine(Options{
		Personas: []config.AgentPersona{
			persona("DEGEN_DAVE", "Degen Dave", false),
			persona("STABLE_SARAH", "Stable Sarah", false),
		},
		Market: &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{
			decisions: map[string]ai.Decision{
				"Stable Sarah": {Action: ai.ActionHold, Thought: "waiting"},
			},
			errs: map[string]error{
				"Degen Dave": fmt.Errorf("model unavailable"),
			},
		},
		Chain: &balanceChain{balance: 100},
	})

	entries := e.RunBatch(context.Background())
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Result)
	assert.Contains(t, entries[0].Error, "model unavailable")
	require.NotNil(t, entries[1].Result)
	assert.Empty(t, entries[1].Error)
}

func TestBridgePersonaEmitsEvent(t *testing.T) {
	events := &eventSink{}
	e := NewEngine(Options{
		Personas: []config.AgentPersona{persona("CHAD_BRIDGE", "Chad Bridge", true)},
		Market:   &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{decisions: map[string]ai.Decision{
			"Chad Bridge": {Action: ai.ActionBuy, Amount: 15, Thought: "gap spotted"},
		}},
		Chain:       &balanceChain{balance: 100},
		Events:      events,
		AgentWallet: "0xagent",
	})

	_, err := e.RunSingle(context.Background(), "CHAD_BRIDGE")
	require.NoError(t, err)

	assert.Contains(t, events.events, "play_deduct")
	assert.Contains(t, events.events, "bridge_requested")
}

func TestPersistFailureDoesNotFailCycle(t *testing.T) {
	e := NewEngine(Options{
		Personas: []config.AgentPersona{persona("DEGEN_DAVE", "Degen Dave", false)},
		Market:   &fixedMarket{snap: testSnapshot()},
		Decider: &scriptedDecider{decisions: map[string]ai.Decision{
			"Degen Dave": {Action: ai.ActionBuy, Amount: 10, Thought: "LFG"},
		}},
		Chain:     &balanceChain{balance: 100},
		Decisions: &memorySink{failAll: true},
	})

	result, err := e.RunSingle(context.Background(), "DEGEN_DAVE")
	require.NoError(t, err)
	require.NotNil(t, result.PlayDeducted)
	assert.Equal(t, 10.0, *result.PlayDeducted)
}
