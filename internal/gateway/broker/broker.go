// Package broker defines a common abstraction over trading backends so the
// execution path works against Alpaca (equities) or Binance spot without
// changing the core pipeline.
package broker

import (
	"context"
	"time"
)

// Bar 是一根 K 线。
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Account 是下单前需要的账户快照。DailyPnL 为今日盈亏，拿不到时为 0。
type Account struct {
	PortfolioValue float64
	BuyingPower    float64
	Cash           float64
	DailyPnL       float64
}

// OrderRequest describes one limit order. Extended-hours execution requires
// limit orders, so there is no market-order path here.
type OrderRequest struct {
	Symbol        string
	Qty           int
	Side          string // "buy" or "sell"
	LimitPrice    float64
	TimeInForce   string // "day" or "gtc"
	ExtendedHours bool
	ClientOrderID string
}

// Order is the backend's acknowledgment. FilledAvgPrice is only meaningful
// when HasFill is true; limit orders may rest unfilled.
type Order struct {
	ID             string
	Status         string
	FilledAvgPrice float64
	HasFill        bool
}

// Broker 是券商网关的最小接口。
type Broker interface {
	Name() string

	SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error)

	GetBars(ctx context.Context, symbol string, limit int) ([]Bar, error)

	GetAccount(ctx context.Context) (Account, error)

	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
