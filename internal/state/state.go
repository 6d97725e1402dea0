// Package state defines the shared cycle state passed between pipeline
// nodes and the merge discipline for concurrent partial writes.
package state

import "time"

// Action 表示最终交易动作。
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction 归一化动作字符串，无法识别时回落为 HOLD。
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionBuy, ActionSell, ActionHold:
		return Action(s)
	default:
		return ActionHold
	}
}

// VIXRegime 按 VIX 水平划分的波动区间。
type VIXRegime string

const (
	RegimeLow      VIXRegime = "low"
	RegimeNormal   VIXRegime = "normal"
	RegimeElevated VIXRegime = "elevated"
	RegimeCrisis   VIXRegime = "crisis"
)

// ExecStatus 是执行器的终态。
type ExecStatus string

const (
	ExecFilled   ExecStatus = "filled"
	ExecRejected ExecStatus = "rejected"
	ExecSkipped  ExecStatus = "skipped"
	ExecError    ExecStatus = "error"
)

// AgentMessage 记录单个节点留下的过程信息，按写入顺序保留。
type AgentMessage struct {
	Node    string    `json:"node"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// TradingState is the single mutable record carried through one cycle.
// It is created fresh per cycle and discarded (or persisted) at cycle end.
// During the analysis fan-out, nodes only ever see an immutable Clone and
// contribute Deltas; the engine owns the writable instance.
type TradingState struct {
	CycleID   string    `json:"cycle_id"`
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`

	CurrentPrice float64 `json:"current_price"`
	AccountValue float64 `json:"account_value"`
	BuyingPower  float64 `json:"buying_power"`
	DailyPnL     float64 `json:"daily_pnl"`

	TechnicalSignals map[string]float64 `json:"technical_signals,omitempty"`
	TechnicalScore   float64            `json:"technical_score"`

	NewsHeadlines       []string  `json:"news_headlines,omitempty"`
	SentimentScores     []float64 `json:"sentiment_scores,omitempty"`
	AggregatedSentiment float64   `json:"aggregated_sentiment"`
	SentimentSource     string    `json:"sentiment_source,omitempty"`

	VIXLevel       float64   `json:"vix_level"`
	VIXRegime      VIXRegime `json:"vix_regime,omitempty"`
	SectorMomentum float64   `json:"sector_momentum"`

	ResearchReport string `json:"research_report,omitempty"`

	FinalAction     Action  `json:"final_action,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning,omitempty"`

	RiskApproved    bool    `json:"risk_approved"`
	PositionSize    int     `json:"position_size"`
	StopLossPrice   float64 `json:"stop_loss_price,omitempty"`
	TakeProfitPrice float64 `json:"take_profit_price,omitempty"`

	OrderID         string     `json:"order_id,omitempty"`
	ExecutionStatus ExecStatus `json:"execution_status,omitempty"`
	Slippage        float64    `json:"slippage"`

	AgentMessages []AgentMessage `json:"agent_messages,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
}

// Clone 返回用于分析节点的只读快照（深拷贝可变成员）。
func (s *TradingState) Clone() *TradingState {
	if s == nil {
		return nil
	}
	out := *s
	if s.TechnicalSignals != nil {
		out.TechnicalSignals = make(map[string]float64, len(s.TechnicalSignals))
		for k, v := range s.TechnicalSignals {
			out.TechnicalSignals[k] = v
		}
	}
	out.NewsHeadlines = append([]string(nil), s.NewsHeadlines...)
	out.SentimentScores = append([]float64(nil), s.SentimentScores...)
	out.AgentMessages = append([]AgentMessage(nil), s.AgentMessages...)
	out.Errors = append([]string(nil), s.Errors...)
	return &out
}

// HasError reports whether any node recorded a failure this cycle.
func (s *TradingState) HasError() bool {
	return len(s.Errors) > 0
}
