// Package risk sizes approved orders and rejects trades that violate the
// account limits. The gate is a pure transform: no side effects, no error
// path — missing inputs are defaulted, never fatal.
package risk

import (
	"context"
	"fmt"
	"math"

	"tradewind/internal/state"
)

// Limits 定义风控参数，零值在 New 中补为缺省。
type Limits struct {
	MaxPositionPct  float64
	MaxRiskPerTrade float64
	MaxDailyLoss    float64
	MinConfidence   float64
}

type Gate struct {
	limits Limits
}

func New(limits Limits) *Gate {
	if limits.MaxPositionPct <= 0 {
		limits.MaxPositionPct = 0.10
	}
	if limits.MaxRiskPerTrade <= 0 {
		limits.MaxRiskPerTrade = 0.02
	}
	if limits.MaxDailyLoss <= 0 {
		limits.MaxDailyLoss = 0.05
	}
	if limits.MinConfidence <= 0 {
		limits.MinConfidence = 0.6
	}
	return &Gate{limits: limits}
}

// Evaluate implements the risk_gate node. Two independent size bounds are
// computed and the smaller one wins:
//
//	risk-based:     account_value×MAX_RISK_PER_TRADE / stop_distance
//	exposure-based: account_value×MAX_POSITION_PCT / current_price
//
// stop_distance = max(2×ATR, 1% of price); ATR defaults to 2% of price
// when the technical node produced none.
func (g *Gate) Evaluate(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	action := snap.FinalAction
	confidence := snap.ConfidenceScore
	price := snap.CurrentPrice
	if price <= 0 {
		price = 100.0
	}
	accountValue := snap.AccountValue
	if accountValue <= 0 {
		accountValue = 100000.0
	}

	if action == state.ActionHold || action == "" {
		return state.NewDelta().
			Set(state.FieldRiskApproved, true).
			Set(state.FieldPositionSize, 0), nil
	}

	if confidence < g.limits.MinConfidence {
		return reject(fmt.Sprintf("low confidence: %.2f < %.2f", confidence, g.limits.MinConfidence)), nil
	}
	if snap.DailyPnL < -(accountValue * g.limits.MaxDailyLoss) {
		return reject("max daily loss exceeded"), nil
	}

	atr := snap.TechnicalSignals["ATR"]
	if atr <= 0 {
		atr = price * 0.02
	}
	stopDistance := 2 * atr
	if floorDist := price * 0.01; stopDistance < floorDist {
		stopDistance = floorDist
	}

	riskAmount := accountValue * g.limits.MaxRiskPerTrade
	sizeRisk := riskAmount / stopDistance
	sizeExposure := (accountValue * g.limits.MaxPositionPct) / price

	size := int(math.Floor(math.Min(sizeRisk, sizeExposure)))
	if confidence < 0.8 {
		size = int(math.Floor(float64(size) * 0.8))
	}
	if size < 0 {
		size = 0
	}

	var stopLoss, takeProfit float64
	if action == state.ActionBuy {
		stopLoss = price - stopDistance
		takeProfit = price + 2*stopDistance
	} else {
		stopLoss = price + stopDistance
		takeProfit = price - 2*stopDistance
	}

	return state.NewDelta().
		Set(state.FieldRiskApproved, true).
		Set(state.FieldPositionSize, size).
		Set(state.FieldStopLossPrice, stopLoss).
		Set(state.FieldTakeProfitPrice, takeProfit), nil
}

func reject(reason string) *state.Delta {
	return state.NewDelta().
		Set(state.FieldRiskApproved, false).
		Set(state.FieldPositionSize, 0).
		Set(state.FieldReasoning, reason)
}
