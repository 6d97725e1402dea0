// Package graph implements the fixed trading pipeline:
//
//	START → supervisor → {technical, sentiment, macro, news_research}
//	      → (fan-in merge) → strategist → risk_gate
//	      → router{approved: executor, else: terminate} → END
//
// The topology is not user-configurable; Register only binds callables to
// the named slots. One Engine runs one cycle at a time over one
// state.TradingState value.
package graph

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/logger"
	"tradewind/internal/state"

	"golang.org/x/sync/errgroup"
)

// Node names. The four analysis nodes run concurrently between supervisor
// and strategist; everything else is sequential.
const (
	NodeSupervisor   = "supervisor"
	NodeTechnical    = "technical"
	NodeSentiment    = "sentiment"
	NodeMacro        = "macro"
	NodeNewsResearch = "news_research"
	NodeStrategist   = "strategist"
	NodeRiskGate     = "risk_gate"
	NodeExecutor     = "executor"
)

var analysisNodes = []string{NodeTechnical, NodeSentiment, NodeMacro, NodeNewsResearch}

var allNodes = []string{
	NodeSupervisor, NodeTechnical, NodeSentiment, NodeMacro,
	NodeNewsResearch, NodeStrategist, NodeRiskGate, NodeExecutor,
}

// NodeFunc 接收状态快照并返回部分状态贡献。分析节点不得修改快照，
// 只能通过返回的 Delta 写状态。
type NodeFunc func(ctx context.Context, snap *state.TradingState) (*state.Delta, error)

// Engine executes the pipeline over one state value per cycle.
type Engine struct {
	nodes       map[string]NodeFunc
	nodeTimeout time.Duration
}

// New 构造引擎。nodeTimeout 限制单个分析节点的运行时长，0 表示不限制。
func New(nodeTimeout time.Duration) *Engine {
	return &Engine{
		nodes:       make(map[string]NodeFunc, len(allNodes)),
		nodeTimeout: nodeTimeout,
	}
}

// Register 将节点名绑定到实现。名字必须是拓扑中的固定槽位。
func (e *Engine) Register(name string, fn NodeFunc) error {
	if fn == nil {
		return fmt.Errorf("graph: node %s requires a function", name)
	}
	for _, known := range allNodes {
		if known == name {
			e.nodes[name] = fn
			return nil
		}
	}
	return fmt.Errorf("graph: unknown node %s", name)
}

func (e *Engine) validate() error {
	for _, name := range allNodes {
		if e.nodes[name] == nil {
			return fmt.Errorf("graph: node %s not registered", name)
		}
	}
	return nil
}

// Run executes the graph to completion and returns the final state.
// Node failures never surface as errors: analysis failures become empty
// contributions with a recorded error, decision failures degrade to neutral
// results. A non-nil error indicates engine misuse (missing nodes, schema
// violations), not a trading condition.
func (e *Engine) Run(ctx context.Context, initial *state.TradingState) (*state.TradingState, error) {
	if initial == nil {
		return nil, fmt.Errorf("graph: initial state required")
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s := initial

	if err := e.runSequential(ctx, s, NodeSupervisor, nil); err != nil {
		return nil, err
	}

	if err := e.runAnalysisFanOut(ctx, s); err != nil {
		return nil, err
	}

	if err := e.runSequential(ctx, s, NodeStrategist, strategistFallback); err != nil {
		return nil, err
	}
	if err := e.runSequential(ctx, s, NodeRiskGate, riskGateFallback); err != nil {
		return nil, err
	}

	if next := route(s); next == NodeExecutor {
		if err := e.runSequential(ctx, s, NodeExecutor, executorFallback); err != nil {
			return nil, err
		}
	} else {
		terminal := state.NewDelta()
		if !s.RiskApproved {
			terminal.Set(state.FieldExecutionStatus, state.ExecRejected)
		} else {
			terminal.Set(state.FieldExecutionStatus, state.ExecSkipped)
		}
		if err := state.Apply(s, "router", terminal); err != nil {
			return nil, err
		}
		logger.Infof("graph: cycle %s terminated before executor approved=%v errors=%d",
			s.CycleID, s.RiskApproved, len(s.Errors))
	}
	return s, nil
}

// runAnalysisFanOut dispatches the four analysis nodes concurrently over an
// immutable snapshot and merges all contributions at the barrier. A failed
// or timed-out node contributes nothing except an appended error; the join
// always accounts for exactly four results before the merge runs.
func (e *Engine) runAnalysisFanOut(ctx context.Context, s *state.TradingState) error {
	snap := s.Clone()
	contribs := make([]state.Contribution, len(analysisNodes))

	group, gctx := errgroup.WithContext(ctx)
	for i, name := range analysisNodes {
		i, name := i, name
		group.Go(func() error {
			delta, err := e.callNode(gctx, name, snap)
			if err != nil {
				logger.Warnf("graph: node %s failed: %v", name, err)
				delta = state.NewDelta().AddError(fmt.Sprintf("%s: %v", name, err))
			}
			contribs[i] = state.Contribution{Node: name, Delta: delta}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return state.Merge(s, contribs)
}

// callNode invokes one analysis node under the per-node timeout. The node
// function is expected to honor ctx, but a stuck node is still abandoned at
// the deadline so the fan-in barrier cannot hang the cycle.
func (e *Engine) callNode(ctx context.Context, name string, snap *state.TradingState) (*state.Delta, error) {
	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		defer cancel()
	}
	type result struct {
		delta *state.Delta
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		delta, err := e.nodes[name](ctx, snap)
		ch <- result{delta: delta, err: err}
	}()
	select {
	case r := <-ch:
		return r.delta, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out after %s: %w", e.nodeTimeout, ctx.Err())
	}
}

// runSequential executes one sequential node against the live state. When
// the node fails and a fallback is provided, the fallback delta is applied
// instead so the cycle always reaches a well-formed terminal state.
func (e *Engine) runSequential(ctx context.Context, s *state.TradingState, name string, fallback func(error) *state.Delta) error {
	delta, err := e.nodes[name](ctx, s.Clone())
	if err != nil {
		if fallback == nil {
			// Supervisor has no meaningful fallback; record and continue.
			logger.Warnf("graph: node %s failed: %v", name, err)
			delta = state.NewDelta().AddError(fmt.Sprintf("%s: %v", name, err))
		} else {
			logger.Errorf("graph: node %s failed, applying neutral fallback: %v", name, err)
			delta = fallback(err)
		}
	}
	return state.Apply(s, name, delta)
}

// route is the only conditional edge in the topology. The executor runs
// only for an approved state with no recorded node errors.
func route(s *state.TradingState) string {
	if s.RiskApproved && !s.HasError() {
		return NodeExecutor
	}
	return ""
}

func strategistFallback(err error) *state.Delta {
	return state.NewDelta().
		Set(state.FieldFinalAction, state.ActionHold).
		Set(state.FieldConfidenceScore, 0.0).
		Set(state.FieldReasoning, fmt.Sprintf("strategist failure, defaulting to HOLD: %v", err))
}

func riskGateFallback(err error) *state.Delta {
	return state.NewDelta().
		Set(state.FieldRiskApproved, false).
		Set(state.FieldPositionSize, 0).
		Set(state.FieldReasoning, fmt.Sprintf("risk gate failure, rejecting: %v", err))
}

func executorFallback(err error) *state.Delta {
	return state.NewDelta().
		Set(state.FieldExecutionStatus, state.ExecError).
		AddError(fmt.Sprintf("executor: %v", err))
}
