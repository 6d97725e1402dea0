package state

import (
	"fmt"
	"sort"
)

// Field names the writable slots of TradingState. Nodes contribute values
// through Deltas keyed by Field; the merge policy per field is fixed here,
// at schema-definition time, rather than implied by call sites.
type Field string

const (
	FieldTechnicalSignals    Field = "technical_signals"
	FieldTechnicalScore      Field = "technical_score"
	FieldNewsHeadlines       Field = "news_headlines"
	FieldSentimentScores     Field = "sentiment_scores"
	FieldAggregatedSentiment Field = "aggregated_sentiment"
	FieldSentimentSource     Field = "sentiment_source"
	FieldVIXLevel            Field = "vix_level"
	FieldVIXRegime           Field = "vix_regime"
	FieldSectorMomentum      Field = "sector_momentum"
	FieldResearchReport      Field = "research_report"
	FieldFinalAction         Field = "final_action"
	FieldConfidenceScore     Field = "confidence_score"
	FieldReasoning           Field = "reasoning"
	FieldRiskApproved        Field = "risk_approved"
	FieldPositionSize        Field = "position_size"
	FieldStopLossPrice       Field = "stop_loss_price"
	FieldTakeProfitPrice     Field = "take_profit_price"
	FieldOrderID             Field = "order_id"
	FieldExecutionStatus     Field = "execution_status"
	FieldSlippage            Field = "slippage"
	FieldAgentMessages       Field = "agent_messages"
	FieldErrors              Field = "errors"
)

// Policy 描述字段的合并纪律。
type Policy int

const (
	// Overwrite: last writer wins. Within one fan-out group two nodes must
	// not legitimately write the same Overwrite field; if they do, deltas
	// are applied in ascending node-name order, so the alphabetically last
	// node wins. Deterministic regardless of completion order.
	Overwrite Policy = iota
	// UnionAppend: concatenate string sequences then de-duplicate.
	// Order is not guaranteed.
	UnionAppend
	// OrderedAppend: concatenate preserving per-writer order, no dedup.
	// Writers are ordered by node name.
	OrderedAppend
)

var schema = map[Field]Policy{
	FieldTechnicalSignals:    Overwrite,
	FieldTechnicalScore:      Overwrite,
	FieldNewsHeadlines:       UnionAppend,
	FieldSentimentScores:     Overwrite,
	FieldAggregatedSentiment: Overwrite,
	FieldSentimentSource:     Overwrite,
	FieldVIXLevel:            Overwrite,
	FieldVIXRegime:           Overwrite,
	FieldSectorMomentum:      Overwrite,
	FieldResearchReport:      Overwrite,
	FieldFinalAction:         Overwrite,
	FieldConfidenceScore:     Overwrite,
	FieldReasoning:           Overwrite,
	FieldRiskApproved:        Overwrite,
	FieldPositionSize:        Overwrite,
	FieldStopLossPrice:       Overwrite,
	FieldTakeProfitPrice:     Overwrite,
	FieldOrderID:             Overwrite,
	FieldExecutionStatus:     Overwrite,
	FieldSlippage:            Overwrite,
	FieldAgentMessages:       OrderedAppend,
	FieldErrors:              OrderedAppend,
}

// PolicyOf exposes the merge policy of a field (useful in tests).
func PolicyOf(f Field) (Policy, bool) {
	p, ok := schema[f]
	return p, ok
}

// Delta 是单个节点对状态的部分贡献，字段未写即未触碰。
type Delta struct {
	values map[Field]any
	order  []Field
}

func NewDelta() *Delta {
	return &Delta{values: make(map[Field]any)}
}

// Set 记录一个字段贡献；同一 Delta 内重复写以最后一次为准。
func (d *Delta) Set(f Field, v any) *Delta {
	if _, seen := d.values[f]; !seen {
		d.order = append(d.order, f)
	}
	d.values[f] = v
	return d
}

// AddMessage 追加一条过程消息（OrderedAppend 字段的便捷入口）。
func (d *Delta) AddMessage(msg AgentMessage) *Delta {
	existing, _ := d.values[FieldAgentMessages].([]AgentMessage)
	return d.Set(FieldAgentMessages, append(existing, msg))
}

// AddError 追加一条节点错误。
func (d *Delta) AddError(err string) *Delta {
	existing, _ := d.values[FieldErrors].([]string)
	return d.Set(FieldErrors, append(existing, err))
}

// Len 返回写入的字段个数。
func (d *Delta) Len() int {
	if d == nil {
		return 0
	}
	return len(d.values)
}

// Contribution pairs a node name with its delta for one merge round.
type Contribution struct {
	Node  string
	Delta *Delta
}

// Merge applies a group of contributions to the working state. Contributions
// are sorted by node name first, so the result is identical for every
// wall-clock completion order of the fan-out branches.
func Merge(s *TradingState, contribs []Contribution) error {
	if s == nil {
		return fmt.Errorf("merge into nil state")
	}
	sorted := append([]Contribution(nil), contribs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Node < sorted[j].Node })
	for _, c := range sorted {
		if c.Delta == nil {
			continue
		}
		for _, f := range c.Delta.order {
			if err := applyField(s, f, c.Delta.values[f]); err != nil {
				return fmt.Errorf("node %s field %s: %w", c.Node, f, err)
			}
		}
	}
	return nil
}

// Apply merges a single delta (used for the sequential nodes after fan-in).
func Apply(s *TradingState, node string, d *Delta) error {
	return Merge(s, []Contribution{{Node: node, Delta: d}})
}

func applyField(s *TradingState, f Field, v any) error {
	policy, ok := schema[f]
	if !ok {
		return fmt.Errorf("unknown field")
	}
	switch policy {
	case UnionAppend:
		vals, ok := v.([]string)
		if !ok {
			return typeErr(v, "[]string")
		}
		s.NewsHeadlines = unionStrings(s.NewsHeadlines, vals)
		return nil
	case OrderedAppend:
		switch f {
		case FieldAgentMessages:
			vals, ok := v.([]AgentMessage)
			if !ok {
				return typeErr(v, "[]state.AgentMessage")
			}
			s.AgentMessages = append(s.AgentMessages, vals...)
		case FieldErrors:
			vals, ok := v.([]string)
			if !ok {
				return typeErr(v, "[]string")
			}
			s.Errors = append(s.Errors, vals...)
		}
		return nil
	}
	return applyOverwrite(s, f, v)
}

func applyOverwrite(s *TradingState, f Field, v any) error {
	switch f {
	case FieldTechnicalSignals:
		val, ok := v.(map[string]float64)
		if !ok {
			return typeErr(v, "map[string]float64")
		}
		s.TechnicalSignals = val
	case FieldTechnicalScore:
		return setFloat(&s.TechnicalScore, v)
	case FieldSentimentScores:
		val, ok := v.([]float64)
		if !ok {
			return typeErr(v, "[]float64")
		}
		s.SentimentScores = val
	case FieldAggregatedSentiment:
		return setFloat(&s.AggregatedSentiment, v)
	case FieldSentimentSource:
		return setString(&s.SentimentSource, v)
	case FieldVIXLevel:
		return setFloat(&s.VIXLevel, v)
	case FieldVIXRegime:
		val, ok := v.(VIXRegime)
		if !ok {
			return typeErr(v, "state.VIXRegime")
		}
		s.VIXRegime = val
	case FieldSectorMomentum:
		return setFloat(&s.SectorMomentum, v)
	case FieldResearchReport:
		return setString(&s.ResearchReport, v)
	case FieldFinalAction:
		val, ok := v.(Action)
		if !ok {
			return typeErr(v, "state.Action")
		}
		s.FinalAction = val
	case FieldConfidenceScore:
		return setFloat(&s.ConfidenceScore, v)
	case FieldReasoning:
		return setString(&s.Reasoning, v)
	case FieldRiskApproved:
		val, ok := v.(bool)
		if !ok {
			return typeErr(v, "bool")
		}
		s.RiskApproved = val
	case FieldPositionSize:
		val, ok := v.(int)
		if !ok {
			return typeErr(v, "int")
		}
		s.PositionSize = val
	case FieldStopLossPrice:
		return setFloat(&s.StopLossPrice, v)
	case FieldTakeProfitPrice:
		return setFloat(&s.TakeProfitPrice, v)
	case FieldOrderID:
		return setString(&s.OrderID, v)
	case FieldExecutionStatus:
		val, ok := v.(ExecStatus)
		if !ok {
			return typeErr(v, "state.ExecStatus")
		}
		s.ExecutionStatus = val
	case FieldSlippage:
		return setFloat(&s.Slippage, v)
	default:
		return fmt.Errorf("unhandled overwrite field")
	}
	return nil
}

func setFloat(dst *float64, v any) error {
	val, ok := v.(float64)
	if !ok {
		return typeErr(v, "float64")
	}
	*dst = val
	return nil
}

func setString(dst *string, v any) error {
	val, ok := v.(string)
	if !ok {
		return typeErr(v, "string")
	}
	*dst = val
	return nil
}

func typeErr(v any, want string) error {
	return fmt.Errorf("value %T does not match schema type %s", v, want)
}

func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, s := range existing {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range incoming {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
