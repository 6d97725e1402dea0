package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealthy(t *testing.T) {
	b := New(Config{})
	assert.False(t, b.Check(CycleSummary{DailyPnL: -1000, VIXLevel: 18, Slippage: 0.001}))
	tripped, _, _ := b.Status()
	assert.False(t, tripped)
}

func TestCheckDailyLossTrips(t *testing.T) {
	b := New(Config{BaseEquity: 100000, MaxDailyLossFrac: 0.05})
	assert.True(t, b.Check(CycleSummary{DailyPnL: -5001}))
	tripped, reason, at := b.Status()
	assert.True(t, tripped)
	assert.Equal(t, "Daily Loss Limit Hit (pnl=-5001.00)", reason)
	assert.False(t, at.IsZero())
}

func TestCheckDailyLossBoundaryDoesNotTrip(t *testing.T) {
	// Exactly at the limit stays open; only a strict breach trips.
	b := New(Config{BaseEquity: 100000, MaxDailyLossFrac: 0.05})
	assert.False(t, b.Check(CycleSummary{DailyPnL: -5000}))
}

func TestCheckVIXTrips(t *testing.T) {
	b := New(Config{VIXThreshold: 40})
	assert.True(t, b.Check(CycleSummary{VIXLevel: 42}))
	_, reason, _ := b.Status()
	assert.Contains(t, reason, "VIX above threshold")
	assert.Contains(t, reason, "42.00")
}

func TestCheckSlippageTripsOnMagnitude(t *testing.T) {
	b := New(Config{SlippageThreshold: 0.02})
	assert.True(t, b.Check(CycleSummary{Slippage: -0.03}))
	_, reason, _ := b.Status()
	assert.Contains(t, reason, "Slippage too high")
}

func TestCheckConditionOrder(t *testing.T) {
	// All three conditions breached at once: the daily-loss reason wins.
	b := New(Config{BaseEquity: 100000})
	assert.True(t, b.Check(CycleSummary{DailyPnL: -9000, VIXLevel: 55, Slippage: 0.5}))
	_, reason, _ := b.Status()
	assert.Contains(t, reason, "Daily Loss Limit Hit")
}

func TestTrippedIsSticky(t *testing.T) {
	b := New(Config{})
	b.Trip("manual")
	// A perfectly healthy summary must still halt.
	assert.True(t, b.Check(CycleSummary{}))
	_, reason, _ := b.Status()
	assert.Equal(t, "manual", reason)
}

func TestTripIdempotentKeepsFirstReason(t *testing.T) {
	b := New(Config{})
	b.Trip("first")
	b.Trip("second")
	_, reason, _ := b.Status()
	assert.Equal(t, "first", reason)
}

func TestResetReopens(t *testing.T) {
	b := New(Config{})
	b.Trip("manual")
	b.Reset()
	tripped, reason, at := b.Status()
	assert.False(t, tripped)
	assert.Empty(t, reason)
	assert.True(t, at.IsZero())
	assert.False(t, b.Check(CycleSummary{}))
}

func TestResetWhenOpenIsNoop(t *testing.T) {
	b := New(Config{})
	b.Reset()
	tripped, _, _ := b.Status()
	assert.False(t, tripped)
}

func TestTripHandlerFiresOncePerTrip(t *testing.T) {
	b := New(Config{VIXThreshold: 40})
	fired := make(chan string, 4)
	b.SetTripHandler(func(reason string, at time.Time) {
		fired <- reason
	})

	assert.True(t, b.Check(CycleSummary{VIXLevel: 50}))
	// Repeated checks while tripped must not refire the handler.
	assert.True(t, b.Check(CycleSummary{VIXLevel: 50}))
	assert.True(t, b.Check(CycleSummary{VIXLevel: 50}))

	select {
	case reason := <-fired:
		assert.Contains(t, reason, "VIX above threshold")
	case <-time.After(time.Second):
		t.Fatal("trip handler never fired")
	}
	select {
	case <-fired:
		t.Fatal("trip handler fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTripHandlerRefiresAfterReset(t *testing.T) {
	b := New(Config{})
	fired := make(chan struct{}, 2)
	b.SetTripHandler(func(string, time.Time) { fired <- struct{}{} })

	b.Trip("one")
	b.Reset()
	b.Trip("two")

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("trip handler fired %d times, want 2", i)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	b := New(Config{})
	require.Equal(t, 100000.0, b.cfg.BaseEquity)
	require.Equal(t, 0.05, b.cfg.MaxDailyLossFrac)
	require.Equal(t, 40.0, b.cfg.VIXThreshold)
	require.Equal(t, 0.02, b.cfg.SlippageThreshold)
}
