package strategist

import (
	"context"
	"errors"
	"testing"

	"tradewind/internal/gateway/provider"
	"tradewind/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply   string
	err     error
	payload provider.ChatPayload
}

func (s *stubProvider) ID() string { return "stub" }

func (s *stubProvider) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	s.payload = payload
	return s.reply, s.err
}

func analysisState() *state.TradingState {
	return &state.TradingState{
		Ticker:              "AAPL",
		CurrentPrice:        150,
		TechnicalScore:      0.5,
		TechnicalSignals:    map[string]float64{"RSI": 45},
		AggregatedSentiment: 0.3,
		NewsHeadlines:       []string{"h1", "h2", "h3", "h4", "h5"},
		VIXLevel:            18,
		VIXRegime:           state.RegimeNormal,
	}
}

func runStrategist(t *testing.T, p *stubProvider) *state.TradingState {
	t.Helper()
	delta, err := New(p).Run(context.Background(), analysisState())
	require.NoError(t, err)
	out := &state.TradingState{}
	require.NoError(t, state.Apply(out, "strategist", delta))
	return out
}

func TestRunParsesDecision(t *testing.T) {
	p := &stubProvider{reply: `{"action": "BUY", "confidence": 0.82, "reasoning": "momentum"}`}
	out := runStrategist(t, p)

	assert.Equal(t, state.ActionBuy, out.FinalAction)
	assert.Equal(t, 0.82, out.ConfidenceScore)
	assert.Equal(t, "momentum", out.Reasoning)
	assert.True(t, p.payload.ExpectJSON)
	require.Len(t, out.AgentMessages, 1)
	assert.Equal(t, "strategist", out.AgentMessages[0].Node)
}

func TestRunUnparsableOutputHolds(t *testing.T) {
	p := &stubProvider{reply: "I am not sure what to do here."}
	out := runStrategist(t, p)

	assert.Equal(t, state.ActionHold, out.FinalAction)
	assert.Zero(t, out.ConfidenceScore)
	assert.Contains(t, out.Reasoning, "defaulting to HOLD")
}

func TestRunProviderErrorSurfaces(t *testing.T) {
	p := &stubProvider{err: errors.New("429 rate limited")}
	_, err := New(p).Run(context.Background(), analysisState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call")
}

func TestBuildPrompt(t *testing.T) {
	s := analysisState()
	prompt := buildPrompt(s)

	assert.Contains(t, prompt, "Ticker: AAPL")
	assert.Contains(t, prompt, "Price: 150.00")
	assert.Contains(t, prompt, "VIX Regime: normal (Level: 18.00)")
	assert.Contains(t, prompt, "Technical Analysis (Score: 0.50)")
	assert.Contains(t, prompt, "RSI: 45.0000")
	// Headlines are capped at three.
	assert.Contains(t, prompt, "- h3")
	assert.NotContains(t, prompt, "- h4")
	assert.Contains(t, prompt, "No special research requested.")
}

func TestBuildPromptEmptyState(t *testing.T) {
	prompt := buildPrompt(&state.TradingState{Ticker: "MSFT", CurrentPrice: 400})
	assert.Contains(t, prompt, "VIX Regime: normal")
	assert.Contains(t, prompt, "no signals available")
	assert.Contains(t, prompt, "- none")
}
