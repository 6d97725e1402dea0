package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradewind/internal/gateway/news"
	"tradewind/internal/state"
)

// 中文说明：
// 情绪节点：抓取标的相关新闻标题，用金融词表逐条打分后取平均。
// 词表打分是 FinBERT 的轻量替代，输出契约一致：headlines、逐条
// 分数、聚合分数 ∈ [-1, 1]。

type Sentiment struct {
	news         *news.Client
	maxHeadlines int
}

func NewSentiment(client *news.Client, maxHeadlines int) *Sentiment {
	if maxHeadlines <= 0 {
		maxHeadlines = 10
	}
	return &Sentiment{news: client, maxHeadlines: maxHeadlines}
}

func (s *Sentiment) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	items, err := s.news.Search(ctx, fmt.Sprintf("%s stock news", snap.Ticker), s.maxHeadlines)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}

	headlines := make([]string, 0, len(items))
	scores := make([]float64, 0, len(items))
	total := 0.0
	for _, item := range items {
		headlines = append(headlines, item.Title)
		sc := scoreHeadline(item.Title)
		scores = append(scores, sc)
		total += sc
	}

	avg := 0.0
	if len(scores) > 0 {
		avg = total / float64(len(scores))
	}
	avg = clamp(avg, -1, 1)

	delta := state.NewDelta().
		Set(state.FieldNewsHeadlines, headlines).
		Set(state.FieldSentimentScores, scores).
		Set(state.FieldAggregatedSentiment, avg).
		Set(state.FieldSentimentSource, "lexicon + GoogleNewsRSS").
		AddMessage(state.AgentMessage{
			Node:    "sentiment",
			Content: fmt.Sprintf("headlines=%d aggregated=%.3f", len(headlines), avg),
			At:      time.Now(),
		})
	return delta, nil
}

var bullishWords = []string{
	"surge", "soar", "rally", "beat", "beats", "upgrade", "upgraded", "record",
	"growth", "profit", "gain", "gains", "jump", "bullish", "strong", "outperform",
	"buy", "breakthrough", "expand", "partnership", "dividend",
}

var bearishWords = []string{
	"plunge", "crash", "fall", "falls", "miss", "misses", "downgrade", "downgraded",
	"loss", "losses", "drop", "drops", "lawsuit", "bearish", "weak", "underperform",
	"sell", "layoff", "layoffs", "recall", "probe", "fraud", "warning", "cut", "cuts",
}

// scoreHeadline 对单条标题打分：命中词加减 0.3，夹紧到 [-1, 1]。
func scoreHeadline(title string) float64 {
	text := strings.ToLower(title)
	score := 0.0
	for _, w := range bullishWords {
		if containsWord(text, w) {
			score += 0.3
		}
	}
	for _, w := range bearishWords {
		if containsWord(text, w) {
			score -= 0.3
		}
	}
	return clamp(score, -1, 1)
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		left := idx == 0 || !isLetter(text[idx-1])
		rightPos := idx + len(word)
		right := rightPos >= len(text) || !isLetter(text[rightPos])
		if left && right {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
