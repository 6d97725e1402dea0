package agent

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/gateway/market"
	"tradewind/internal/logger"
	"tradewind/internal/state"
)

// sectorMap 把标的映射到所属板块 ETF，未知标的对标大盘。
var sectorMap = map[string]string{
	"AAPL": "XLK", "MSFT": "XLK", "NVDA": "XLK",
	"GOOGL": "XLC", "META": "XLC",
	"JPM": "XLF", "BAC": "XLF",
	"TSLA": "XLY", "AMZN": "XLY",
}

const fallbackVIX = 20.0

// Macro 产出 VIX 水平、波动区间与板块相对大盘的月度动量。
type Macro struct {
	data market.MacroData
}

func NewMacro(data market.MacroData) *Macro {
	return &Macro{data: data}
}

func (m *Macro) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	vix, err := m.data.VIXLevel(ctx)
	if err != nil {
		// VIX 拿不到就用中性值，本节点不因行情源抖动而整体失败。
		logger.Warnf("macro: vix unavailable, using fallback: %v", err)
		vix = fallbackVIX
	}
	regime := classifyVIX(vix)

	sector := sectorMap[snap.Ticker]
	if sector == "" {
		sector = "SPY"
	}
	momentum := 0.0
	sectorRet, serr := m.data.MonthlyReturn(ctx, sector)
	spyRet, berr := m.data.MonthlyReturn(ctx, "SPY")
	if serr == nil && berr == nil {
		momentum = sectorRet - spyRet
	} else {
		logger.Warnf("macro: sector momentum unavailable sector=%s err=%v/%v", sector, serr, berr)
	}

	delta := state.NewDelta().
		Set(state.FieldVIXLevel, vix).
		Set(state.FieldVIXRegime, regime).
		Set(state.FieldSectorMomentum, momentum).
		AddMessage(state.AgentMessage{
			Node:    "macro",
			Content: fmt.Sprintf("vix=%.2f regime=%s sector=%s momentum=%.4f", vix, regime, sector, momentum),
			At:      time.Now(),
		})
	return delta, nil
}

func classifyVIX(vix float64) state.VIXRegime {
	switch {
	case vix < 15:
		return state.RegimeLow
	case vix < 25:
		return state.RegimeNormal
	case vix < 35:
		return state.RegimeElevated
	default:
		return state.RegimeCrisis
	}
}
