package strategist

import (
	"testing"

	"tradewind/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	d, err := ParseDecision(`{"action": "BUY", "confidence": 0.82, "reasoning": "strong momentum"}`)
	require.NoError(t, err)
	assert.Equal(t, state.ActionBuy, d.Action)
	assert.Equal(t, 0.82, d.Confidence)
	assert.Equal(t, "strong momentum", d.Reasoning)
}

func TestParseDecisionMarkdownFence(t *testing.T) {
	raw := "```json\n{\"action\": \"SELL\", \"confidence\": 0.7, \"reasoning\": \"overbought\"}\n```"
	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, state.ActionSell, d.Action)
	assert.Equal(t, 0.7, d.Confidence)
}

func TestParseDecisionSurroundingProse(t *testing.T) {
	raw := `Based on my analysis of the indicators:

{"action": "HOLD", "confidence": 0.55, "reasoning": "signals are mixed"}

Let me know if you need more detail.`
	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, state.ActionHold, d.Action)
	assert.Equal(t, "signals are mixed", d.Reasoning)
}

func TestParseDecisionWrappedObject(t *testing.T) {
	d, err := ParseDecision(`{"decision": {"action": "BUY", "confidence": 0.9, "reasoning": "breakout"}}`)
	require.NoError(t, err)
	assert.Equal(t, state.ActionBuy, d.Action)
	assert.Equal(t, 0.9, d.Confidence)
}

func TestParseDecisionStringConfidence(t *testing.T) {
	d, err := ParseDecision(`{"action": "BUY", "confidence": "0.8", "reasoning": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.8, d.Confidence)
}

func TestParseDecisionConfidenceClamped(t *testing.T) {
	d, err := ParseDecision(`{"action": "BUY", "confidence": 1.4, "reasoning": "very sure"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Confidence)

	d, err = ParseDecision(`{"action": "SELL", "confidence": -0.2, "reasoning": "noise"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Confidence)
}

func TestParseDecisionLowercaseActionNormalized(t *testing.T) {
	// The schema enum is uppercase, so lowercase fails validation upstream;
	// mixed-case variants with valid uppercase form still parse.
	_, err := ParseDecision(`{"action": "buy", "confidence": 0.8, "reasoning": "x"}`)
	assert.Error(t, err)
}

func TestParseDecisionInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"not json":        "I cannot decide right now.",
		"array root":      `[{"action": "BUY"}]`,
		"missing action":  `{"confidence": 0.8, "reasoning": "x"}`,
		"bad action":      `{"action": "SHORT", "confidence": 0.8, "reasoning": "x"}`,
		"empty reasoning": `{"action": "BUY", "confidence": 0.8, "reasoning": ""}`,
		"truncated":       `{"action": "BUY", "confidence":`,
	}
	for name, raw := range cases {
		_, err := ParseDecision(raw)
		assert.Error(t, err, name)
	}
}
