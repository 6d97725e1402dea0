package agent

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/state"
)

// Supervisor 在循环起点做入参校验并留一条开场消息。拓扑是固定的，
// 它不做动态路由。
type Supervisor struct{}

func NewSupervisor() *Supervisor { return &Supervisor{} }

func (s *Supervisor) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	if snap.Ticker == "" {
		return nil, fmt.Errorf("cycle state missing ticker")
	}
	if snap.CurrentPrice <= 0 {
		return nil, fmt.Errorf("cycle state missing current price for %s", snap.Ticker)
	}
	delta := state.NewDelta().AddMessage(state.AgentMessage{
		Node:    "supervisor",
		Content: fmt.Sprintf("cycle start ticker=%s price=%.2f account=%.2f", snap.Ticker, snap.CurrentPrice, snap.AccountValue),
		At:      time.Now(),
	})
	return delta, nil
}
