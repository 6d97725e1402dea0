// Package breaker holds the process-wide safety gate. Unlike cycle state it
// survives across cycles: once tripped it stays tripped until an operator
// resets it explicitly.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"tradewind/internal/logger"
)

// Config 定义三个熔断阈值。
type Config struct {
	BaseEquity        float64
	MaxDailyLossFrac  float64
	VIXThreshold      float64
	SlippageThreshold float64
}

// CycleSummary 是上一周期回传给熔断器的观察值。
type CycleSummary struct {
	DailyPnL float64
	VIXLevel float64
	Slippage float64
}

// CircuitBreaker is safe for concurrent use; Check, Trip and Reset are its
// only mutators. TripHandler fires exactly once per new trip, never once
// per cycle while already tripped.
type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       Config
	tripped   bool
	reason    string
	trippedAt time.Time
	onTrip    func(reason string, at time.Time)
}

func New(cfg Config) *CircuitBreaker {
	if cfg.BaseEquity <= 0 {
		cfg.BaseEquity = 100000
	}
	if cfg.MaxDailyLossFrac <= 0 {
		cfg.MaxDailyLossFrac = 0.05
	}
	if cfg.VIXThreshold <= 0 {
		cfg.VIXThreshold = 40
	}
	if cfg.SlippageThreshold <= 0 {
		cfg.SlippageThreshold = 0.02
	}
	return &CircuitBreaker{cfg: cfg}
}

// SetTripHandler 注册熔断回调（通常接通知通道）。
func (b *CircuitBreaker) SetTripHandler(fn func(reason string, at time.Time)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = fn
}

// Check evaluates the trip conditions in order, first match wins, and
// reports whether the next cycle must be halted. A tripped breaker
// short-circuits without re-evaluating.
func (b *CircuitBreaker) Check(prior CycleSummary) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		return true
	}
	if prior.DailyPnL < -(b.cfg.MaxDailyLossFrac * b.cfg.BaseEquity) {
		b.trip(fmt.Sprintf("Daily Loss Limit Hit (pnl=%.2f)", prior.DailyPnL))
		return true
	}
	if prior.VIXLevel > b.cfg.VIXThreshold {
		b.trip(fmt.Sprintf("VIX above threshold (%.2f > %.2f)", prior.VIXLevel, b.cfg.VIXThreshold))
		return true
	}
	slip := prior.Slippage
	if slip < 0 {
		slip = -slip
	}
	if slip > b.cfg.SlippageThreshold {
		b.trip(fmt.Sprintf("Slippage too high (%.4f)", prior.Slippage))
		return true
	}
	return false
}

// Trip 手动熔断（幂等）。
func (b *CircuitBreaker) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trip(reason)
}

// trip assumes b.mu is held.
func (b *CircuitBreaker) trip(reason string) {
	if b.tripped {
		return
	}
	b.tripped = true
	b.reason = reason
	b.trippedAt = time.Now()
	logger.Errorf("CIRCUIT BREAKER TRIPPED: %s", reason)
	if b.onTrip != nil {
		go b.onTrip(reason, b.trippedAt)
	}
}

// Reset clears the breaker. Deliberately a separate operator action, never
// called from the cycle loop.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		return
	}
	logger.Warnf("circuit breaker reset by operator (was: %s)", b.reason)
	b.tripped = false
	b.reason = ""
	b.trippedAt = time.Time{}
}

// Status 返回当前熔断状态。
func (b *CircuitBreaker) Status() (tripped bool, reason string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped, b.reason, b.trippedAt
}
