// Package app wires configuration, gateways, stores and the pipeline engine
// into a runnable trading service.
package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tradewind/internal/breaker"
	"tradewind/internal/config"
	"tradewind/internal/gateway/broker"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/graph"
	"tradewind/internal/logger"
	"tradewind/internal/scheduler"
	"tradewind/internal/state"
	"tradewind/internal/store"

	"github.com/google/uuid"
)

// App 持有装配完成的管线及其外围设施。
type App struct {
	cfg        *config.Config
	engine     *graph.Engine
	broker     broker.Broker
	breaker    *breaker.CircuitBreaker
	trades     store.TradeStore
	cycles     store.CycleStore
	dispatcher *notifier.Dispatcher
	http       interface {
		Start()
		Shutdown(context.Context) error
	}

	mu          sync.Mutex
	lastSummary breaker.CycleSummary
	cycleCount  int64
	startedAt   time.Time
}

// Run 启动 HTTP 服务并按周期驱动管线，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a.http != nil {
		a.http.Start()
	}
	interval := time.Duration(a.cfg.Trading.CycleIntervalSeconds) * time.Second
	sched := scheduler.NewAlignedScheduler(ctx, interval, 0)
	sched.RunImmediately = true
	sched.Start(func() { a.RunOnce(ctx) })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Close(shutdownCtx)
}

// RunOnce 对配置的每个标的各跑一个周期。
func (a *App) RunOnce(ctx context.Context) {
	for _, ticker := range a.cfg.Trading.Tickers {
		if ctx.Err() != nil {
			return
		}
		if _, err := a.RunCycle(ctx, ticker); err != nil {
			logger.Errorf("cycle failed ticker=%s: %v", ticker, err)
		}
	}
}

// RunCycle 驱动一个完整周期：熔断检查 → 初始化状态 → 跑图 → 落盘。
// 返回终态供调用方检视。
func (a *App) RunCycle(ctx context.Context, ticker string) (*state.TradingState, error) {
	a.mu.Lock()
	prior := a.lastSummary
	a.mu.Unlock()

	if a.breaker.Check(prior) {
		_, reason, _ := a.breaker.Status()
		logger.Warnf("cycle skipped, breaker tripped: %s", reason)
		return nil, nil
	}

	initial, err := a.initState(ctx, ticker)
	if err != nil {
		return nil, err
	}
	logger.Infof("cycle start id=%s ticker=%s price=%.2f", initial.CycleID, ticker, initial.CurrentPrice)

	final, err := a.engine.Run(ctx, initial)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cycleCount++
	a.lastSummary = breaker.CycleSummary{
		DailyPnL: final.DailyPnL,
		VIXLevel: final.VIXLevel,
		Slippage: final.Slippage,
	}
	a.mu.Unlock()

	a.persistCycle(ctx, final)
	logger.Infof("cycle done id=%s action=%s status=%s size=%d slippage=%.4f errors=%d",
		final.CycleID, final.FinalAction, final.ExecutionStatus, final.PositionSize, final.Slippage, len(final.Errors))
	return final, nil
}

// initState 拉取账户与最新价，构造本周期的初始状态。
func (a *App) initState(ctx context.Context, ticker string) (*state.TradingState, error) {
	price, err := a.broker.LatestPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}
	account, err := a.broker.GetAccount(ctx)
	if err != nil {
		return nil, err
	}
	return &state.TradingState{
		CycleID:      uuid.NewString(),
		Ticker:       ticker,
		Timestamp:    time.Now(),
		CurrentPrice: price,
		AccountValue: account.PortfolioValue,
		BuyingPower:  account.BuyingPower,
		DailyPnL:     account.DailyPnL,
	}, nil
}

func (a *App) persistCycle(ctx context.Context, final *state.TradingState) {
	if a.cycles == nil {
		return
	}
	raw, err := json.Marshal(final)
	if err != nil {
		logger.Errorf("marshal cycle state: %v", err)
		return
	}
	rec := store.CycleRecord{
		CycleID:    final.CycleID,
		Ticker:     final.Ticker,
		Action:     string(final.FinalAction),
		Status:     string(final.ExecutionStatus),
		Confidence: final.ConfidenceScore,
		StateJSON:  string(raw),
	}
	if err := a.cycles.LogCycle(ctx, rec); err != nil {
		logger.Errorf("log cycle failed id=%s: %v", final.CycleID, err)
	}
}

// Status 实现 admin.StatusProvider。
func (a *App) Status() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]any{
		"tickers":       a.cfg.Trading.Tickers,
		"broker":        a.broker.Name(),
		"cycle_count":   a.cycleCount,
		"uptime":        time.Since(a.startedAt).Truncate(time.Second).String(),
		"last_vix":      a.lastSummary.VIXLevel,
		"last_pnl":      a.lastSummary.DailyPnL,
		"last_slippage": a.lastSummary.Slippage,
	}
}

// Breaker 暴露熔断器（供命令行工具使用）。
func (a *App) Breaker() *breaker.CircuitBreaker { return a.breaker }

// Close 释放存储与通知资源。
func (a *App) Close(ctx context.Context) error {
	if a.http != nil {
		if err := a.http.Shutdown(ctx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.cycles != nil {
		if err := a.cycles.Close(); err != nil {
			logger.Warnf("close cycle store: %v", err)
		}
	}
	return nil
}
