package arena

import (
	"context"
	"errors"
	"fmt"

	"yudha/internal/ai"
	"yudha/internal/config"
	"yudha/internal/gateway/chain"
	"yudha/internal/logger"
	"yudha/internal/market"
	"yudha/internal/store/decisionlog"

	"github.com/google/uuid"
)

// ErrUnknownAgent is returned for keys outside the configured persona set.
var ErrUnknownAgent = errors.New("unknown agent")

// MarketProvider yields the current snapshot; it never fails.
type MarketProvider interface {
	Acquire(ctx context.Context) market.Snapshot
}

// Decider produces a decision for one persona against one snapshot.
type Decider interface {
	Decide(ctx context.Context, agentName, personaPrompt string, snapshot market.Snapshot, balanceCeiling *float64) (ai.Decision, error)
}

// ProfitRecorder accumulates realized profit; sweeps happen behind it.
type ProfitRecorder interface {
	RecordProfit(ctx context.Context, agentKey string, amount float64)
}

// DecisionSink persists snapshots and decisions. Failures here degrade to
// warnings; the cycle result is already settled by the time it is saved.
type DecisionSink interface {
	InsertSnapshot(ctx context.Context, rec decisionlog.SnapshotRecord) (int64, error)
	InsertDecision(ctx context.Context, rec decisionlog.DecisionRecord) (int64, error)
}

// EventRecorder appends treasury audit events.
type EventRecorder interface {
	RecordTreasuryEvent(eventType, wallet string, amount float64, txHash *string, metadata map[string]any) error
}

// Options wires an Engine.
type Options struct {
	Personas  []config.AgentPersona
	Market    MarketProvider
	Decider   Decider
	Treasury  ProfitRecorder
	Chain     chain.Client
	Decisions DecisionSink
	Events    EventRecorder
	// AgentWallet is the shared wallet holding the play-token balance.
	AgentWallet string
}

// Engine runs decision cycles: observe the market, ask the persona's model
// for an action, record requested profit, then settle the deduction against
// the bounded play balance.
type Engine struct {
	personas    []config.AgentPersona
	market      MarketProvider
	decider     Decider
	treasury    ProfitRecorder
	chain       chain.Client
	decisions   DecisionSink
	events      EventRecorder
	agentWallet string
}

func NewEngine(opts Options) *Engine {
	personas := opts.Personas
	if len(personas) == 0 {
		personas = config.DefaultPersonas()
	}
	return &Engine{
		personas:    personas,
		market:      opts.Market,
		decider:     opts.Decider,
		treasury:    opts.Treasury,
		chain:       opts.Chain,
		decisions:   opts.Decisions,
		events:      opts.Events,
		agentWallet: opts.AgentWallet,
	}
}

// Personas returns the configured persona set in stable order.
func (e *Engine) Personas() []config.AgentPersona {
	return e.personas
}

// CycleResult is one settled decision. PlayDeducted is nil when no on-chain
// deduction occurred.
type CycleResult struct {
	AgentKey     string          `json:"agentKey"`
	AgentName    string          `json:"agentName"`
	Protocol     string          `json:"protocol"`
	Decision     ai.Decision     `json:"decision"`
	Snapshot     market.Snapshot `json:"snapshot"`
	PlayDeducted *float64        `json:"playDeducted"`
	TraceID      string          `json:"traceId"`
}

// BatchEntry is one slot of a batch run. Exactly one of Result/Error is set;
// a single failing agent never aborts the batch.
type BatchEntry struct {
	AgentKey string       `json:"agentKey"`
	Result   *CycleResult `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// RunSingle executes one decision cycle for one agent with a fresh balance
// read. Decision errors propagate to the caller.
func (e *Engine) RunSingle(ctx context.Context, agentKey string) (CycleResult, error) {
	persona, ok := e.findPersona(agentKey)
	if !ok {
		return CycleResult{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentKey)
	}
	snapshot := e.market.Acquire(ctx)
	balance, haveBalance := e.readBalance(ctx)
	traceID := uuid.NewString()

	var ceiling *float64
	if haveBalance {
		ceiling = &balance
	}
	return e.runCycle(ctx, persona, snapshot, ceiling, haveBalance, traceID)
}

// RunBatch executes one cycle per persona sequentially with a single balance
// read up front. Each agent observes its own fresh snapshot, which may differ
// from its neighbors' due to feed timing; each settled deduction shrinks the
// shared remaining balance for the agents that follow.
func (e *Engine) RunBatch(ctx context.Context) []BatchEntry {
	remaining, haveBalance := e.readBalance(ctx)
	traceID := uuid.NewString()

	out := make([]BatchEntry, 0, len(e.personas))
	for _, persona := range e.personas {
		entry := BatchEntry{AgentKey: persona.Key}
		snapshot := e.market.Acquire(ctx)
		var ceiling *float64
		if haveBalance {
			c := remaining
			ceiling = &c
		}
		result, err := e.runCycle(ctx, persona, snapshot, ceiling, haveBalance, traceID)
		if err != nil {
			logger.Warnf("[arena] %s cycle failed: %v", persona.Key, err)
			entry.Error = err.Error()
		} else {
			entry.Result = &result
			if result.PlayDeducted != nil {
				remaining -= *result.PlayDeducted
			}
		}
		out = append(out, entry)
	}
	return out
}

func (e *Engine) findPersona(agentKey string) (config.AgentPersona, bool) {
	key := config.NormalizeAgentKey(agentKey)
	for _, p := range e.personas {
		if p.Key == key {
			return p, true
		}
	}
	return config.AgentPersona{}, false
}

// readBalance reads the shared play balance once. A failed read degrades to
// "balance unknown": the decision still runs, the deduction is skipped.
func (e *Engine) readBalance(ctx context.Context) (float64, bool) {
	if e.chain == nil {
		return 0, false
	}
	balance, err := e.chain.ArenaBalance(ctx, e.agentWallet)
	if err != nil {
		logger.Warnf("[arena] balance read failed: %v", err)
		return 0, false
	}
	return balance, true
}

func (e *Engine) runCycle(ctx context.Context, persona config.AgentPersona, snapshot market.Snapshot, ceiling *float64, haveBalance bool, traceID string) (CycleResult, error) {
	snapID := e.persistSnapshot(ctx, snapshot)
	decision, err := e.decider.Decide(ctx, persona.Name, persona.Personality, snapshot, ceiling)
	if err != nil {
		return CycleResult{}, err
	}
	logger.Infof("[arena] %s decided %s %.2f (%s)", persona.Key, decision.Action, decision.Amount, snapshot.Source)

	result := CycleResult{
		AgentKey:  persona.Key,
		AgentName: persona.Name,
		Protocol:  persona.Protocol,
		Decision:  decision,
		Snapshot:  snapshot,
		TraceID:   traceID,
	}
	if !decision.IsHold() && decision.Amount > 0 {
		// Profit accumulates on the requested amount, before clamping; the
		// treasury tracks intent, the balance tracks what the wallet can pay.
		if e.treasury != nil {
			e.treasury.RecordProfit(ctx, persona.Key, decision.Amount)
		}
		result.PlayDeducted = e.settle(ctx, persona, decision.Amount, ceiling, haveBalance)
		e.recordBridgeRequest(persona, decision)
	}
	e.persistDecision(ctx, snapID, result)
	return result, nil
}

// settle clamps the requested amount to what the balance can cover and burns
// it. Returns nil when no deduction occurred: unknown balance, zero clamp, or
// a failed write.
func (e *Engine) settle(ctx context.Context, persona config.AgentPersona, requested float64, ceiling *float64, haveBalance bool) *float64 {
	if !haveBalance || ceiling == nil || e.chain == nil {
		return nil
	}
	available := *ceiling
	if available < 0 {
		available = 0
	}
	amount := requested
	if amount > available {
		amount = available
	}
	if amount <= 0 {
		return nil
	}
	res, err := e.chain.DeductPlay(ctx, e.agentWallet, amount)
	if err != nil || !res.Success {
		logger.Warnf("[arena] %s play deduction failed: %v", persona.Key, err)
		return nil
	}
	var txHash *string
	if res.TxHash != "" {
		txHash = &res.TxHash
	}
	e.recordEvent("play_deduct", e.agentWallet, amount, txHash, map[string]any{"agent_key": persona.Key})
	return &amount
}

// recordBridgeRequest mirrors the cross-chain persona's intent into the
// audit trail. No bridging actually happens here.
func (e *Engine) recordBridgeRequest(persona config.AgentPersona, decision ai.Decision) {
	if !persona.EmitBridgeEvents {
		return
	}
	e.recordEvent("bridge_requested", e.agentWallet, decision.Amount, nil, map[string]any{
		"agent_key": persona.Key,
		"action":    decision.Action,
		"protocol":  persona.Protocol,
	})
}

func (e *Engine) recordEvent(eventType, wallet string, amount float64, txHash *string, metadata map[string]any) {
	if e.events == nil {
		return
	}
	if err := e.events.RecordTreasuryEvent(eventType, wallet, amount, txHash, metadata); err != nil {
		logger.Warnf("[arena] %s event persist failed: %v", eventType, err)
	}
}

// persistSnapshot writes the observed tick before the decision runs, so
// every cycle leaves a market record even when the model fails. Storage
// failures only warn.
func (e *Engine) persistSnapshot(ctx context.Context, snapshot market.Snapshot) int64 {
	if e.decisions == nil {
		return 0
	}
	snapID, err := e.decisions.InsertSnapshot(ctx, decisionlog.SnapshotRecord{
		Price:      snapshot.Price,
		Change24h:  snapshot.Change24h,
		Volatility: snapshot.Volatility,
		Source:     snapshot.Source,
		Timestamp:  snapshot.Timestamp.UnixMilli(),
	})
	if err != nil {
		logger.Warnf("[arena] snapshot persist failed: %v", err)
		return 0
	}
	return snapID
}

// persistDecision saves the settled decision against its snapshot. Failures
// only warn; the decision has already settled.
func (e *Engine) persistDecision(ctx context.Context, snapID int64, result CycleResult) {
	if e.decisions == nil || snapID <= 0 {
		return
	}
	var wallet *string
	if e.agentWallet != "" {
		w := e.agentWallet
		wallet = &w
	}
	_, err := e.decisions.InsertDecision(ctx, decisionlog.DecisionRecord{
		TraceID:      result.TraceID,
		AgentKey:     result.AgentKey,
		AgentName:    result.AgentName,
		Protocol:     result.Protocol,
		Action:       result.Decision.Action,
		Amount:       result.Decision.Amount,
		PlayDeducted: result.PlayDeducted,
		PlayerWallet: wallet,
		Thought:      result.Decision.Thought,
		SnapshotID:   snapID,
		Timestamp:    result.Snapshot.Timestamp.UnixMilli(),
	})
	if err != nil {
		logger.Warnf("[arena] decision persist failed: %v", err)
	}
}
