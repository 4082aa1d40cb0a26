package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"yudha/internal/config"
	"yudha/internal/gateway/provider"
	"yudha/internal/logger"
	"yudha/internal/market"
	"yudha/internal/pkg/jsonutil"

	"github.com/tidwall/gjson"
)

// ChatClient abstracts the chat completions transport so tests can stub it.
type ChatClient interface {
	CallWithMessages(ctx context.Context, agentName, systemPrompt, userPrompt string) (string, error)
}

// Engine turns a persona prompt plus a market snapshot into a Decision.
// When the upstream is not configured it fails with ErrUnavailable unless
// dev fallback is explicitly enabled.
type Engine struct {
	client      ChatClient
	configured  bool
	devFallback bool
}

func NewEngine(cfg config.AIConfig) *Engine {
	client := &provider.OpenRouterClient{
		BaseURL:    cfg.APIURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
		Referer:    cfg.Referer,
		Title:      cfg.Title,
	}
	return &Engine{
		client:      client,
		configured:  strings.TrimSpace(cfg.APIKey) != "",
		devFallback: cfg.DevFallback,
	}
}

// NewEngineWithClient is the injection point for tests.
func NewEngineWithClient(client ChatClient, configured, devFallback bool) *Engine {
	return &Engine{client: client, configured: configured, devFallback: devFallback}
}

// Decide requests one decision. The balance ceiling, when present, is passed
// upstream as an advisory hint only; enforcement happens at settlement.
func (e *Engine) Decide(ctx context.Context, agentName, personaPrompt string, snapshot market.Snapshot, balanceCeiling *float64) (Decision, error) {
	if !e.configured {
		if e.devFallback {
			logger.Warnf("[ai] no API key configured, serving dev fallback decision for %s", agentName)
			return devDecision(snapshot, personaPrompt), nil
		}
		return Decision{}, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}
	userPrompt := buildUserPrompt(snapshot, balanceCeiling)
	raw, err := e.client.CallWithMessages(ctx, agentName, personaPrompt, userPrompt)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseDecision(raw)
}

func buildUserPrompt(snapshot market.Snapshot, balanceCeiling *float64) string {
	snapJSON, _ := json.Marshal(snapshot)
	var b strings.Builder
	fmt.Fprintf(&b, "Current market data: %s. ", snapJSON)
	if balanceCeiling != nil {
		fmt.Fprintf(&b, "Your remaining play-token balance is %.2f. Never request an amount above it", *balanceCeiling)
		if *balanceCeiling < 10 {
			b.WriteString(", and with a balance this low prefer HOLD or very small amounts")
		}
		b.WriteString(". ")
	}
	b.WriteString(`Provide your next action strictly in JSON format: {"action": "BUY"|"SELL"|"HOLD", "amount": number, "thought": "your brief reasoning"}`)
	return b.String()
}

func parseDecision(raw string) (Decision, error) {
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return Decision{}, fmt.Errorf("%w: no JSON object in output", ErrMalformed)
	}
	parsed := gjson.Parse(obj)
	action := strings.ToUpper(strings.TrimSpace(parsed.Get("action").String()))
	d := Decision{
		Action:  action,
		Amount:  parsed.Get("amount").Float(),
		Thought: strings.TrimSpace(parsed.Get("thought").String()),
	}
	normalized, _ := json.Marshal(d)
	if err := ValidateDecisionJSON(string(normalized)); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d, nil
}

// devDecision mirrors the historical dev-mode behavior: a harmless synthetic
// decision clearly labelled as such. Only reachable when dev_fallback is on.
func devDecision(snapshot market.Snapshot, personaPrompt string) Decision {
	action := ActionHold
	if rand.Float64() > 0.5 {
		action = ActionBuy
	}
	trend := "bearish"
	if snapshot.Change24h > 0 {
		trend = "bullish"
	}
	persona := personaPrompt
	if idx := strings.Index(persona, ","); idx != -1 {
		persona = persona[:idx]
	}
	return Decision{
		Action: action,
		Amount: math.Floor(rand.Float64()*5) + 1,
		Thought: fmt.Sprintf("[DEV MODE] Analyzing price at %.2f. Momentum seems %s. Looking for %s opportunities.",
			snapshot.Price, trend, persona),
	}
}
