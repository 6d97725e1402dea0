package agent

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/config/params"
	"tradewind/internal/gateway/broker"
	"tradewind/internal/state"

	"github.com/markcheno/go-talib"
)

const barLookback = 200

// Technical 基于日线指标打分：RSI、MACD 柱、均线多头排列、布林带，
// 每项 ±0.25，总分落在 [-1, 1]。
type Technical struct {
	broker broker.Broker
	params *params.Registry
}

func NewTechnical(b broker.Broker, reg *params.Registry) *Technical {
	return &Technical{broker: b, params: reg}
}

func (t *Technical) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	bars, err := t.broker.GetBars(ctx, snap.Ticker, barLookback)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	p := t.params.Resolve(snap.Ticker)
	if len(bars) < p.SMA.SlowWindow+1 {
		return nil, fmt.Errorf("insufficient bars: got %d need %d", len(bars), p.SMA.SlowWindow+1)
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	price := closes[len(closes)-1]

	rsiSeries := talib.Rsi(closes, p.RSI.Window)
	rsi := lastValid(rsiSeries, 50)

	_, _, macdHist := talib.Macd(closes, 12, 26, 9)
	hist := lastValid(macdHist, 0)

	bbUpper, _, bbLower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	upper := lastValid(bbUpper, 0)
	lower := lastValid(bbLower, 0)

	atrSeries := talib.Atr(highs, lows, closes, p.ATR.Window)
	atr := lastValid(atrSeries, 0)

	smaFast := lastValid(talib.Sma(closes, p.SMA.FastWindow), price)
	smaSlow := lastValid(talib.Sma(closes, p.SMA.SlowWindow), price)

	score := 0.0
	if rsi < p.RSI.BuyThreshold {
		score += 0.25
	} else if rsi > p.RSI.SellThreshold {
		score -= 0.25
	}
	if hist > 0 {
		score += 0.25
	} else {
		score -= 0.25
	}
	if price > smaFast && smaFast > smaSlow {
		score += 0.25
	} else if price < smaFast && smaFast < smaSlow {
		score -= 0.25
	}
	if lower > 0 && price < lower {
		score += 0.25
	} else if upper > 0 && price > upper {
		score -= 0.25
	}

	signals := map[string]float64{
		"RSI":       rsi,
		"MACD_Hist": hist,
		"SMA_Fast":  smaFast,
		"SMA_Slow":  smaSlow,
		"BB_Upper":  upper,
		"BB_Lower":  lower,
		"ATR":       atr,
	}

	delta := state.NewDelta().
		Set(state.FieldTechnicalSignals, signals).
		Set(state.FieldTechnicalScore, score).
		AddMessage(state.AgentMessage{
			Node:    "technical",
			Content: fmt.Sprintf("score=%.2f rsi=%.1f macd_hist=%.4f", score, rsi, hist),
			At:      time.Now(),
		})
	return delta, nil
}

// lastValid 取序列末尾最后一个非零有效值，指标 warmup 段会填 0。
func lastValid(series []float64, fallback float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != 0 && !isNaN(series[i]) {
			return series[i]
		}
	}
	return fallback
}

func isNaN(f float64) bool { return f != f }
