// Package store defines the persistence contracts of the pipeline. Trades
// land in a GORM-backed table, full cycle checkpoints go to a plain SQLite
// log. Both are append-only and best-effort from the caller's view.
package store

import (
	"context"
	"time"
)

// TradeRecord 是一笔已提交订单的落库记录。
type TradeRecord struct {
	ID            int64
	CycleID       string
	Symbol        string
	Side          string
	Quantity      int
	LimitPrice    float64
	FilledPrice   float64
	Slippage      float64
	OrderID       string
	ClientOrderID string
	Status        string
	Reasoning     string
	Confidence    float64
	ExecutedAt    time.Time
}

// TradeLogger 供执行器落库使用。
type TradeLogger interface {
	LogTrade(ctx context.Context, rec TradeRecord) error
}

// TradeStore 在 TradeLogger 之上增加查询，供管理接口使用。
type TradeStore interface {
	TradeLogger
	ListTrades(ctx context.Context, symbol string, limit int) ([]TradeRecord, error)
}

// CycleRecord 是一个完整周期的检查点。
type CycleRecord struct {
	ID         int64     `json:"id"`
	CycleID    string    `json:"cycle_id"`
	Ticker     string    `json:"ticker"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	StateJSON  string    `json:"state_json"`
	CreatedAt  time.Time `json:"created_at"`
}

// CycleStore 保存周期检查点并支持回看。
type CycleStore interface {
	LogCycle(ctx context.Context, rec CycleRecord) error
	ListCycles(ctx context.Context, ticker string, limit int) ([]CycleRecord, error)
	Close() error
}
