package notifier

import (
	"fmt"
	"strings"
	"time"
)

const maxMessageLen = 3800

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// Message 描述统一格式的交易/风控推送。
type Message struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m Message) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(strings.TrimSpace(m.Icon + " " + m.Title))
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func renderSections(secs []MessageSection) string {
	hasContent := false
	for _, sec := range secs {
		if len(sanitizeLines(sec.Lines)) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		title := strings.TrimSpace(sec.Title)
		if title != "" {
			b.WriteString(sanitize(title))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(sanitize(line))
			b.WriteString("\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n\n")
	return b.String()
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	return s
}

// TradeMessage 构造成交推送。
func TradeMessage(ticker, action string, qty int, limitPrice, stopLoss, takeProfit float64, status, reasoning string) Message {
	return Message{
		Icon:  "📈",
		Title: fmt.Sprintf("交易执行 %s %s", ticker, action),
		Sections: []MessageSection{
			{Title: "订单", Lines: []string{
				fmt.Sprintf("数量: %d", qty),
				fmt.Sprintf("限价: %.2f", limitPrice),
				fmt.Sprintf("止损: %.2f", stopLoss),
				fmt.Sprintf("止盈: %.2f", takeProfit),
				fmt.Sprintf("状态: %s", status),
			}},
			{Title: "理由", Lines: []string{reasoning}},
		},
		Timestamp: time.Now(),
	}
}

// RiskMessage 构造风控拒绝/异常推送。
func RiskMessage(ticker, detail string) Message {
	return Message{
		Icon:      "⚠️",
		Title:     fmt.Sprintf("风控提示 %s", ticker),
		Sections:  []MessageSection{{Lines: []string{detail}}},
		Timestamp: time.Now(),
	}
}

// BreakerMessage 构造熔断推送。
func BreakerMessage(reason string) Message {
	return Message{
		Icon:      "🛑",
		Title:     "熔断触发，交易已暂停",
		Sections:  []MessageSection{{Lines: []string{reason, "需要人工确认后重置"}}},
		Timestamp: time.Now(),
	}
}
