// Package executor places the approved order and records the outcome. The
// sequence is fixed: guard → submit → slippage → persist → notify. Persist
// and notify are best-effort; only the submit step can fail the trade.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradewind/internal/gateway/broker"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/logger"
	"tradewind/internal/state"
	"tradewind/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options 控制下单参数。
type Options struct {
	TimeInForce   string
	ExtendedHours bool
}

// Executor 是管线的末端节点。
type Executor struct {
	broker broker.Broker
	trades store.TradeLogger
	notify *notifier.Dispatcher
	opts   Options
}

func New(b broker.Broker, trades store.TradeLogger, notify *notifier.Dispatcher, opts Options) *Executor {
	if opts.TimeInForce == "" {
		opts.TimeInForce = "day"
	}
	return &Executor{broker: b, trades: trades, notify: notify, opts: opts}
}

func (e *Executor) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	// Guard. The router already checks approval, but the node must be safe
	// to call with any state.
	if !snap.RiskApproved {
		return state.NewDelta().
			Set(state.FieldExecutionStatus, state.ExecRejected).
			AddError("executor: risk assessment failed"), nil
	}
	if snap.FinalAction == state.ActionHold || snap.PositionSize <= 0 {
		return state.NewDelta().
			Set(state.FieldExecutionStatus, state.ExecSkipped).
			Set(state.FieldReasoning, "action is HOLD or quantity is 0"), nil
	}

	side := "buy"
	if snap.FinalAction == state.ActionSell {
		side = "sell"
	}
	clientOrderID := uuid.NewString()

	order, err := e.broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:        snap.Ticker,
		Qty:           snap.PositionSize,
		Side:          side,
		LimitPrice:    snap.CurrentPrice,
		TimeInForce:   e.opts.TimeInForce,
		ExtendedHours: e.opts.ExtendedHours,
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		// 下单失败：不写成交记录，但要推风控告警。
		if e.notify != nil {
			e.notify.Send(notifier.RiskMessage(snap.Ticker, fmt.Sprintf("下单失败: %v", err)))
		}
		return state.NewDelta().
			Set(state.FieldExecutionStatus, state.ExecError).
			AddError(fmt.Sprintf("executor: submit order: %v", err)), nil
	}

	slippage := computeSlippage(order, snap.CurrentPrice)
	status := normalizeStatus(order)

	// 成交记录尽力而为，失败只记日志，不影响本周期结果。
	if e.trades != nil {
		rec := store.TradeRecord{
			CycleID:       snap.CycleID,
			Symbol:        snap.Ticker,
			Side:          side,
			Quantity:      snap.PositionSize,
			LimitPrice:    snap.CurrentPrice,
			FilledPrice:   order.FilledAvgPrice,
			Slippage:      slippage,
			OrderID:       order.ID,
			ClientOrderID: clientOrderID,
			Status:        string(status),
			Reasoning:     snap.Reasoning,
			Confidence:    snap.ConfidenceScore,
			ExecutedAt:    time.Now(),
		}
		if err := e.trades.LogTrade(ctx, rec); err != nil {
			logger.Errorf("executor: log trade failed order=%s: %v", order.ID, err)
		}
	}

	if e.notify != nil {
		e.notify.Send(notifier.TradeMessage(
			snap.Ticker, string(snap.FinalAction), snap.PositionSize,
			snap.CurrentPrice, snap.StopLossPrice, snap.TakeProfitPrice,
			string(status), snap.Reasoning,
		))
	}

	return state.NewDelta().
		Set(state.FieldOrderID, order.ID).
		Set(state.FieldExecutionStatus, status).
		Set(state.FieldSlippage, slippage), nil
}

// computeSlippage 返回 (成交价-期望价)/期望价；未成交（挂单中）记 0。
func computeSlippage(order *broker.Order, expected float64) float64 {
	if order == nil || !order.HasFill || expected == 0 {
		return 0
	}
	filled := decimal.NewFromFloat(order.FilledAvgPrice)
	exp := decimal.NewFromFloat(expected)
	out, _ := filled.Sub(exp).Div(exp).Float64()
	return out
}

func normalizeStatus(order *broker.Order) state.ExecStatus {
	if order == nil {
		return state.ExecError
	}
	switch strings.ToLower(order.Status) {
	case "rejected", "canceled", "cancelled", "expired":
		return state.ExecRejected
	default:
		// accepted/new/partially_filled 等挂单状态统一按 filled 流程走，
		// 滑点为 0，后续成交由券商侧结算。
		return state.ExecFilled
	}
}
