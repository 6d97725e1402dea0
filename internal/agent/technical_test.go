package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradewind/internal/config/params"
	"tradewind/internal/gateway/broker"
	"tradewind/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBroker struct {
	bars    []broker.Bar
	barsErr error
}

func (s *stubBroker) Name() string { return "stub" }

func (s *stubBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBroker) GetBars(ctx context.Context, symbol string, limit int) ([]broker.Bar, error) {
	return s.bars, s.barsErr
}

func (s *stubBroker) GetAccount(ctx context.Context) (broker.Account, error) {
	return broker.Account{}, nil
}

func (s *stubBroker) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}

func syntheticBars(n int, start, step float64) []broker.Bar {
	bars := make([]broker.Bar, n)
	day := time.Now().AddDate(0, 0, -n)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = broker.Bar{
			Time:   day.AddDate(0, 0, i),
			Open:   c - step/2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func defaultRegistry(t *testing.T) *params.Registry {
	t.Helper()
	reg, err := params.NewRegistry("")
	require.NoError(t, err)
	return reg
}

func TestTechnicalRun(t *testing.T) {
	tech := NewTechnical(&stubBroker{bars: syntheticBars(200, 100, 0.5)}, defaultRegistry(t))
	delta, err := tech.Run(context.Background(), &state.TradingState{Ticker: "AAPL", CurrentPrice: 199.5})
	require.NoError(t, err)

	out := &state.TradingState{}
	require.NoError(t, state.Apply(out, "technical", delta))

	for _, key := range []string{"RSI", "MACD_Hist", "SMA_Fast", "SMA_Slow", "BB_Upper", "BB_Lower", "ATR"} {
		assert.Contains(t, out.TechnicalSignals, key)
	}
	assert.GreaterOrEqual(t, out.TechnicalScore, -1.0)
	assert.LessOrEqual(t, out.TechnicalScore, 1.0)
	assert.Greater(t, out.TechnicalSignals["ATR"], 0.0)
	// A steady uptrend keeps the fast average above the slow one.
	assert.Greater(t, out.TechnicalSignals["SMA_Fast"], out.TechnicalSignals["SMA_Slow"])
	// Monotonic gains pin RSI at the top of its range.
	assert.Greater(t, out.TechnicalSignals["RSI"], 70.0)
	require.Len(t, out.AgentMessages, 1)
	assert.Equal(t, "technical", out.AgentMessages[0].Node)
}

func TestTechnicalBarsFetchError(t *testing.T) {
	tech := NewTechnical(&stubBroker{barsErr: errors.New("api down")}, defaultRegistry(t))
	_, err := tech.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch bars")
}

func TestTechnicalInsufficientBars(t *testing.T) {
	tech := NewTechnical(&stubBroker{bars: syntheticBars(30, 100, 0.5)}, defaultRegistry(t))
	_, err := tech.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient bars")
}

func TestLastValid(t *testing.T) {
	assert.Equal(t, 3.0, lastValid([]float64{0, 0, 1, 3}, 9))
	assert.Equal(t, 1.0, lastValid([]float64{0, 1, 0, 0}, 9))
	assert.Equal(t, 9.0, lastValid([]float64{0, 0, 0}, 9))
	assert.Equal(t, 9.0, lastValid(nil, 9))
}

func TestSupervisorValidation(t *testing.T) {
	sup := NewSupervisor()

	_, err := sup.Run(context.Background(), &state.TradingState{})
	assert.Error(t, err)

	_, err = sup.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	assert.Error(t, err)

	delta, err := sup.Run(context.Background(), &state.TradingState{Ticker: "AAPL", CurrentPrice: 150})
	require.NoError(t, err)
	out := &state.TradingState{}
	require.NoError(t, state.Apply(out, "supervisor", delta))
	require.Len(t, out.AgentMessages, 1)
	assert.Contains(t, out.AgentMessages[0].Content, "AAPL")
}
