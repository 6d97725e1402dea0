package agent

import (
	"context"
	"errors"
	"testing"

	"tradewind/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMacroData struct {
	vix     float64
	vixErr  error
	returns map[string]float64
	retErr  error
}

func (s *stubMacroData) VIXLevel(ctx context.Context) (float64, error) {
	return s.vix, s.vixErr
}

func (s *stubMacroData) MonthlyReturn(ctx context.Context, symbol string) (float64, error) {
	if s.retErr != nil {
		return 0, s.retErr
	}
	return s.returns[symbol], nil
}

func runMacro(t *testing.T, data *stubMacroData, ticker string) *state.TradingState {
	t.Helper()
	m := NewMacro(data)
	delta, err := m.Run(context.Background(), &state.TradingState{Ticker: ticker})
	require.NoError(t, err)
	out := &state.TradingState{Ticker: ticker}
	require.NoError(t, state.Apply(out, "macro", delta))
	return out
}

func TestMacroRun(t *testing.T) {
	out := runMacro(t, &stubMacroData{
		vix:     18.5,
		returns: map[string]float64{"XLK": 0.06, "SPY": 0.02},
	}, "AAPL")

	assert.Equal(t, 18.5, out.VIXLevel)
	assert.Equal(t, state.RegimeNormal, out.VIXRegime)
	assert.InDelta(t, 0.04, out.SectorMomentum, 1e-9)
	require.Len(t, out.AgentMessages, 1)
	assert.Contains(t, out.AgentMessages[0].Content, "sector=XLK")
}

func TestMacroUnknownTickerUsesSPY(t *testing.T) {
	out := runMacro(t, &stubMacroData{
		vix:     12,
		returns: map[string]float64{"SPY": 0.02},
	}, "ZZZZ")

	// sector and benchmark are both SPY, so momentum nets to zero.
	assert.Equal(t, state.RegimeLow, out.VIXRegime)
	assert.Zero(t, out.SectorMomentum)
	assert.Contains(t, out.AgentMessages[0].Content, "sector=SPY")
}

func TestMacroVIXFallback(t *testing.T) {
	// A dead quote source degrades to the neutral VIX, never a node failure.
	out := runMacro(t, &stubMacroData{
		vixErr:  errors.New("quote timeout"),
		returns: map[string]float64{"XLY": 0.01, "SPY": 0.03},
	}, "TSLA")

	assert.Equal(t, fallbackVIX, out.VIXLevel)
	assert.Equal(t, state.RegimeNormal, out.VIXRegime)
	assert.InDelta(t, -0.02, out.SectorMomentum, 1e-9)
}

func TestMacroMomentumFallback(t *testing.T) {
	out := runMacro(t, &stubMacroData{vix: 30, retErr: errors.New("chart unavailable")}, "MSFT")
	assert.Equal(t, state.RegimeElevated, out.VIXRegime)
	assert.Zero(t, out.SectorMomentum)
}

func TestClassifyVIX(t *testing.T) {
	assert.Equal(t, state.RegimeLow, classifyVIX(10))
	assert.Equal(t, state.RegimeLow, classifyVIX(14.99))
	assert.Equal(t, state.RegimeNormal, classifyVIX(15))
	assert.Equal(t, state.RegimeNormal, classifyVIX(24.9))
	assert.Equal(t, state.RegimeElevated, classifyVIX(25))
	assert.Equal(t, state.RegimeElevated, classifyVIX(34.9))
	assert.Equal(t, state.RegimeCrisis, classifyVIX(35))
	assert.Equal(t, state.RegimeCrisis, classifyVIX(80))
}
