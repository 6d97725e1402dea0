package model

import (
	"gorm.io/datatypes"
)

// TradeModel 映射 trades 表。
type TradeModel struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CycleID       string         `gorm:"column:cycle_id;index"`
	Symbol        string         `gorm:"column:symbol;index"`
	Side          string         `gorm:"column:side"`
	Quantity      int            `gorm:"column:quantity"`
	LimitPrice    float64        `gorm:"column:limit_price"`
	FilledPrice   float64        `gorm:"column:filled_price"`
	Slippage      float64        `gorm:"column:slippage"`
	OrderID       string         `gorm:"column:order_id;index"`
	ClientOrderID string         `gorm:"column:client_order_id;uniqueIndex"`
	Status        string         `gorm:"column:status"`
	Reasoning     string         `gorm:"column:reasoning"`
	Confidence    float64        `gorm:"column:confidence"`
	Extra         datatypes.JSON `gorm:"column:extra"`
	ExecutedAt    int64          `gorm:"column:executed_at;index"`
	CreatedAt     int64          `gorm:"column:created_at"`
}

func (TradeModel) TableName() string { return "trades" }
