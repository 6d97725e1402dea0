package strategist

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"tradewind/internal/state"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Decision 是模型输出解析后的决策。
type Decision struct {
	Action     state.Action
	Confidence float64
	Reasoning  string
}

const decisionSchemaJSON = `{
  "type": "object",
  "required": ["action", "confidence", "reasoning"],
  "properties": {
    "action": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
    "confidence": {"type": "number"},
    "reasoning": {"type": "string", "minLength": 1}
  }
}`

var (
	schemaOnce     sync.Once
	decisionSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("decision.json", strings.NewReader(decisionSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		decisionSchema, schemaErr = compiler.Compile("decision.json")
	})
	return decisionSchema, schemaErr
}

// ParseDecision 从模型原始输出中抽取决策 JSON 并校验。模型有时把 JSON
// 包在 markdown 代码块里，或在前后写解释文字，这里都兼容。
func ParseDecision(raw string) (Decision, error) {
	body, err := coerceDecisionJSON(raw)
	if err != nil {
		return Decision{}, err
	}

	schema, err := compiledSchema()
	if err != nil {
		return Decision{}, fmt.Errorf("compile decision schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return Decision{}, fmt.Errorf("decode decision json: %w", err)
	}
	if err := schema.Validate(sanitizeNumbers(doc)); err != nil {
		return Decision{}, fmt.Errorf("decision schema: %w", err)
	}

	parsed := gjson.Parse(body)
	confidence := parsed.Get("confidence").Float()
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Decision{
		Action:     state.ParseAction(strings.ToUpper(strings.TrimSpace(parsed.Get("action").String()))),
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(parsed.Get("reasoning").String()),
	}, nil
}

func coerceDecisionJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("json 内容为空")
	}
	// 去掉 ```json ... ``` 包裹。
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}
	if !gjson.Valid(raw) {
		// 模型可能在 JSON 前后加说明，截取首个对象再试一次。
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return "", fmt.Errorf("json 格式无效")
		}
		raw = raw[start : end+1]
		if !gjson.Valid(raw) {
			return "", fmt.Errorf("json 格式无效")
		}
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return "", fmt.Errorf("根节点必须是 JSON 对象")
	}
	// 兼容 {"decision": {...}} 包一层的情况。
	if inner := parsed.Get("decision"); inner.Exists() && inner.IsObject() {
		return strings.TrimSpace(inner.Raw), nil
	}
	return raw, nil
}

// sanitizeNumbers 将字符串形式的数字转为 float64，兼容模型偶尔返回
// "0.8" 而非 0.8 的情况。
func sanitizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if k == "confidence" {
				if s, ok := child.(string); ok {
					var f float64
					if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f); err == nil {
						out[k] = f
						continue
					}
				}
			}
			out[k] = sanitizeNumbers(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeNumbers(child)
		}
		return out
	default:
		return v
	}
}
