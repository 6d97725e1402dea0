package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"tradewind/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	return state.NewDelta(), nil
}

// registerAll binds every slot to noop, then applies the overrides.
func registerAll(t *testing.T, e *Engine, overrides map[string]NodeFunc) {
	t.Helper()
	for _, name := range []string{
		NodeSupervisor, NodeTechnical, NodeSentiment, NodeMacro,
		NodeNewsResearch, NodeStrategist, NodeRiskGate, NodeExecutor,
	} {
		fn := noopNode
		if ov, ok := overrides[name]; ok {
			fn = ov
		}
		require.NoError(t, e.Register(name, fn))
	}
}

func approveRiskGate(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	return state.NewDelta().
		Set(state.FieldRiskApproved, true).
		Set(state.FieldPositionSize, 10), nil
}

func TestRegisterRejectsUnknownNode(t *testing.T) {
	e := New(0)
	assert.Error(t, e.Register("optimizer", noopNode))
	assert.Error(t, e.Register(NodeTechnical, nil))
}

func TestRunFailsWhenNodeMissing(t *testing.T) {
	e := New(0)
	require.NoError(t, e.Register(NodeSupervisor, noopNode))
	_, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	assert.Error(t, err)
}

func TestRunMergeDeterministicUnderShuffledCompletion(t *testing.T) {
	// technical and macro both write technical_score (overwrite policy) with
	// randomized delays; the alphabetically-last writer must win every run.
	mkAnalysis := func(name string, score float64) NodeFunc {
		return func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			return state.NewDelta().
				Set(state.FieldTechnicalScore, score).
				Set(state.FieldNewsHeadlines, []string{"shared headline", name + " exclusive"}), nil
		}
	}

	for run := 0; run < 10; run++ {
		e := New(0)
		registerAll(t, e, map[string]NodeFunc{
			NodeTechnical: mkAnalysis("technical", 0.9),
			NodeMacro:     mkAnalysis("macro", -0.9),
		})
		final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, 0.9, final.TechnicalScore, "run %d", run)
		assert.Len(t, final.NewsHeadlines, 3, "run %d", run)
	}
}

func TestRunAnalysisFailureRecordsErrorAndCompletes(t *testing.T) {
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeSentiment: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return nil, errors.New("rss unreachable")
		},
		NodeTechnical: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return state.NewDelta().Set(state.FieldTechnicalScore, 0.5), nil
		},
		NodeRiskGate: approveRiskGate,
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)

	require.Len(t, final.Errors, 1)
	assert.Contains(t, final.Errors[0], "sentiment")
	assert.Contains(t, final.Errors[0], "rss unreachable")
	// The surviving analysis contribution still landed.
	assert.Equal(t, 0.5, final.TechnicalScore)
	// Approved but errored: the router must bypass the executor.
	assert.Equal(t, state.ExecSkipped, final.ExecutionStatus)
}

func TestRunAnalysisTimeout(t *testing.T) {
	e := New(30 * time.Millisecond)
	registerAll(t, e, map[string]NodeFunc{
		NodeMacro: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
			return state.NewDelta(), nil
		},
	})

	start := time.Now()
	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, final.Errors, 1)
	assert.Contains(t, final.Errors[0], "macro")
	assert.Contains(t, final.Errors[0], "timed out")
}

func TestRunRouterRejectedSkipsExecutor(t *testing.T) {
	var execCalls atomic.Int32
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeRiskGate: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return state.NewDelta().
				Set(state.FieldRiskApproved, false).
				Set(state.FieldPositionSize, 0), nil
		},
		NodeExecutor: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			execCalls.Add(1)
			return state.NewDelta(), nil
		},
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), execCalls.Load())
	assert.Equal(t, state.ExecRejected, final.ExecutionStatus)
}

func TestRunRouterApprovedReachesExecutor(t *testing.T) {
	var execCalls atomic.Int32
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeRiskGate: approveRiskGate,
		NodeExecutor: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			execCalls.Add(1)
			return state.NewDelta().
				Set(state.FieldOrderID, "ord-1").
				Set(state.FieldExecutionStatus, state.ExecFilled), nil
		},
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), execCalls.Load())
	assert.Equal(t, "ord-1", final.OrderID)
	assert.Equal(t, state.ExecFilled, final.ExecutionStatus)
}

func TestRunStrategistFailureFallsBackToHold(t *testing.T) {
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeStrategist: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return nil, errors.New("provider 500")
		},
		NodeRiskGate: approveRiskGate,
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, state.ActionHold, final.FinalAction)
	assert.Equal(t, 0.0, final.ConfidenceScore)
	assert.Contains(t, final.Reasoning, "defaulting to HOLD")
}

func TestRunRiskGateFailureRejects(t *testing.T) {
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeRiskGate: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return nil, errors.New("limits unavailable")
		},
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.False(t, final.RiskApproved)
	assert.Equal(t, 0, final.PositionSize)
	assert.Equal(t, state.ExecRejected, final.ExecutionStatus)
}

func TestRunExecutorFailureFallback(t *testing.T) {
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeRiskGate: approveRiskGate,
		NodeExecutor: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return nil, errors.New("broker down")
		},
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, state.ExecError, final.ExecutionStatus)
	require.Len(t, final.Errors, 1)
	assert.Contains(t, final.Errors[0], "broker down")
}

func TestRunAnalysisNodesSeeImmutableSnapshot(t *testing.T) {
	// An analysis node mutating its snapshot must not leak into the live state.
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeTechnical: func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			snap.Ticker = "HACKED"
			snap.Errors = append(snap.Errors, "should not appear")
			return state.NewDelta(), nil
		},
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", final.Ticker)
	assert.Empty(t, final.Errors)
}

func TestRunNilInitialState(t *testing.T) {
	e := New(0)
	registerAll(t, e, nil)
	_, err := e.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunAllFourAnalysisNodesContribute(t *testing.T) {
	mk := func(name string) NodeFunc {
		return func(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
			return state.NewDelta().AddMessage(state.AgentMessage{
				Node:    name,
				Content: fmt.Sprintf("%s done", name),
				At:      time.Now(),
			}), nil
		}
	}
	e := New(0)
	registerAll(t, e, map[string]NodeFunc{
		NodeTechnical:    mk(NodeTechnical),
		NodeSentiment:    mk(NodeSentiment),
		NodeMacro:        mk(NodeMacro),
		NodeNewsResearch: mk(NodeNewsResearch),
	})

	final, err := e.Run(context.Background(), &state.TradingState{Ticker: "AAPL"})
	require.NoError(t, err)
	require.Len(t, final.AgentMessages, 4)
	// Merge orders contributions by node name.
	assert.Equal(t, NodeMacro, final.AgentMessages[0].Node)
	assert.Equal(t, NodeNewsResearch, final.AgentMessages[1].Node)
	assert.Equal(t, NodeSentiment, final.AgentMessages[2].Node)
	assert.Equal(t, NodeTechnical, final.AgentMessages[3].Node)
}
