// Package strategist turns the merged analysis state into a trade decision
// through an LLM call. It never lets a model failure escape: any parse or
// transport error degrades to HOLD with confidence 0.
package strategist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradewind/internal/gateway/provider"
	"tradewind/internal/logger"
	"tradewind/internal/state"
)

const maxPromptHeadlines = 3

// Strategist 组装提示词、调用模型并解析决策。
type Strategist struct {
	provider provider.ModelProvider
}

func New(p provider.ModelProvider) *Strategist {
	return &Strategist{provider: p}
}

const systemPrompt = `You are a senior hedge fund portfolio manager. Analyze the market data and make a trading decision.
Respond with a single JSON object: {"action": "BUY"|"SELL"|"HOLD", "confidence": 0.0-1.0, "reasoning": "..."}.
Decision rules:
- BUY: technical > 0.2, sentiment > 0, favorable sector momentum
- SELL: technical < -0.2, sentiment < 0
- HOLD: conflicting signals or low confidence
Strong conviction requires VIX below 25; above 30 lean defensive.`

func (s *Strategist) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	raw, err := s.provider.Call(ctx, provider.ChatPayload{
		System:     systemPrompt,
		User:       buildPrompt(snap),
		ExpectJSON: true,
	})
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		// 模型答非所问时不向上抛，退化为 HOLD。
		logger.Warnf("strategist: unparsable decision, holding: %v", err)
		decision = Decision{
			Action:     state.ActionHold,
			Confidence: 0.0,
			Reasoning:  fmt.Sprintf("model output unparsable, defaulting to HOLD: %v", err),
		}
	}

	delta := state.NewDelta().
		Set(state.FieldFinalAction, decision.Action).
		Set(state.FieldConfidenceScore, decision.Confidence).
		Set(state.FieldReasoning, decision.Reasoning).
		AddMessage(state.AgentMessage{
			Node:    "strategist",
			Content: fmt.Sprintf("action=%s confidence=%.2f", decision.Action, decision.Confidence),
			At:      time.Now(),
		})
	return delta, nil
}

func buildPrompt(s *state.TradingState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context:\n- Ticker: %s\n- Price: %.2f\n- VIX Regime: %s (Level: %.2f)\n- Sector Momentum: %.4f\n\n",
		s.Ticker, s.CurrentPrice, regimeOrDefault(s.VIXRegime), s.VIXLevel, s.SectorMomentum)

	fmt.Fprintf(&b, "Technical Analysis (Score: %.2f):\n", s.TechnicalScore)
	if len(s.TechnicalSignals) == 0 {
		b.WriteString("- no signals available\n")
	}
	for name, v := range s.TechnicalSignals {
		fmt.Fprintf(&b, "- %s: %.4f\n", name, v)
	}

	fmt.Fprintf(&b, "\nSentiment Analysis (Score: %.3f):\nTop Headlines:\n", s.AggregatedSentiment)
	headlines := s.NewsHeadlines
	if len(headlines) > maxPromptHeadlines {
		headlines = headlines[:maxPromptHeadlines]
	}
	if len(headlines) == 0 {
		b.WriteString("- none\n")
	}
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s\n", h)
	}

	report := strings.TrimSpace(s.ResearchReport)
	if report == "" {
		report = "No special research requested."
	}
	fmt.Fprintf(&b, "\nNews Research Report:\n%s\n", report)
	return b.String()
}

func regimeOrDefault(r state.VIXRegime) state.VIXRegime {
	if r == "" {
		return state.RegimeNormal
	}
	return r
}
