package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradewind/internal/store"
	storemodel "tradewind/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// GormStore implements trade storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore initializes the trade database, creating the file and schema
// on first use.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 交易数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storemodel.TradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) LogTrade(ctx context.Context, rec store.TradeRecord) error {
	m := toModel(rec)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("gorm store: insert trade: %w", err)
	}
	return nil
}

func (s *GormStore) ListTrades(ctx context.Context, symbol string, limit int) ([]store.TradeRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&storemodel.TradeModel{}).Order("executed_at DESC").Limit(limit)
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(symbol))
	}
	var rows []storemodel.TradeModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm store: list trades: %w", err)
	}
	out := make([]store.TradeRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(rec store.TradeRecord) storemodel.TradeModel {
	executed := rec.ExecutedAt
	if executed.IsZero() {
		executed = time.Now()
	}
	return storemodel.TradeModel{
		CycleID:       rec.CycleID,
		Symbol:        strings.ToUpper(rec.Symbol),
		Side:          rec.Side,
		Quantity:      rec.Quantity,
		LimitPrice:    rec.LimitPrice,
		FilledPrice:   rec.FilledPrice,
		Slippage:      rec.Slippage,
		OrderID:       rec.OrderID,
		ClientOrderID: rec.ClientOrderID,
		Status:        rec.Status,
		Reasoning:     rec.Reasoning,
		Confidence:    rec.Confidence,
		ExecutedAt:    executed.Unix(),
		CreatedAt:     time.Now().Unix(),
	}
}

func fromModel(m storemodel.TradeModel) store.TradeRecord {
	return store.TradeRecord{
		ID:            m.ID,
		CycleID:       m.CycleID,
		Symbol:        m.Symbol,
		Side:          m.Side,
		Quantity:      m.Quantity,
		LimitPrice:    m.LimitPrice,
		FilledPrice:   m.FilledPrice,
		Slippage:      m.Slippage,
		OrderID:       m.OrderID,
		ClientOrderID: m.ClientOrderID,
		Status:        m.Status,
		Reasoning:     m.Reasoning,
		Confidence:    m.Confidence,
		ExecutedAt:    time.Unix(m.ExecutedAt, 0),
	}
}
