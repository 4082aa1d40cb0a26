package ai

import (
	"context"
	"errors"
	"testing"

	"yudha/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) CallWithMessages(ctx context.Context, agentName, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, agentName, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

var testSnapshot = market.Snapshot{Price: 2500, Change24h: 1.2, Volatility: 0.012, Source: market.SourceCoinGecko}

func TestDecideParsesStrictJSON(t *testing.T) {
	client := new(MockChatClient)
	client.On("CallWithMessages", mock.Anything, "Dave", "persona", mock.Anything).
		Return(`{"action":"BUY","amount":3,"thought":"LFG"}`, nil)
	e := NewEngineWithClient(client, true, false)

	d, err := e.Decide(context.Background(), "Dave", "persona", testSnapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, float64(3), d.Amount)
	assert.Equal(t, "LFG", d.Thought)
}

func TestDecideAcceptsFencedOutput(t *testing.T) {
	client := new(MockChatClient)
	client.On("CallWithMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Sure!\n```json\n{\"action\": \"hold\", \"amount\": 0, \"thought\": \"waiting\"}\n```", nil)
	e := NewEngineWithClient(client, true, false)

	d, err := e.Decide(context.Background(), "Sarah", "persona", testSnapshot, nil)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, d.Action)
	assert.True(t, d.IsHold())
}

func TestDecideMalformedOutput(t *testing.T) {
	cases := []string{
		"I think we should buy some ETH today.",
		`{"action":"YOLO","amount":3}`,
		`{"action":"BUY","amount":-5}`,
	}
	for _, raw := range cases {
		client := new(MockChatClient)
		client.On("CallWithMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(raw, nil)
		e := NewEngineWithClient(client, true, false)
		_, err := e.Decide(context.Background(), "X", "p", testSnapshot, nil)
		assert.ErrorIs(t, err, ErrMalformed, "raw=%q", raw)
	}
}

func TestDecideUpstreamError(t *testing.T) {
	client := new(MockChatClient)
	client.On("CallWithMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("status=500: boom"))
	e := NewEngineWithClient(client, true, false)
	_, err := e.Decide(context.Background(), "X", "p", testSnapshot, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecideNotConfigured(t *testing.T) {
	e := NewEngineWithClient(nil, false, false)
	_, err := e.Decide(context.Background(), "X", "p", testSnapshot, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDecideDevFallback(t *testing.T) {
	e := NewEngineWithClient(nil, false, true)
	d, err := e.Decide(context.Background(), "X", "You are Degen Dave, an impulsive trader", testSnapshot, nil)
	require.NoError(t, err)
	assert.Contains(t, []string{ActionBuy, ActionHold}, d.Action)
	assert.GreaterOrEqual(t, d.Amount, float64(1))
	assert.Contains(t, d.Thought, "[DEV MODE]")
}

func TestDecidePassesCeilingHint(t *testing.T) {
	client := new(MockChatClient)
	var seenPrompt string
	client.On("CallWithMessages", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(user string) bool {
		seenPrompt = user
		return true
	})).Return(`{"action":"HOLD","amount":0,"thought":"ok"}`, nil)
	e := NewEngineWithClient(client, true, false)

	ceiling := 7.5
	_, err := e.Decide(context.Background(), "X", "p", testSnapshot, &ceiling)
	require.NoError(t, err)
	assert.Contains(t, seenPrompt, "7.50")
	assert.Contains(t, seenPrompt, "prefer HOLD")
}
