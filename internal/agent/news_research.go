package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradewind/internal/gateway/news"
	"tradewind/internal/state"
)

// NewsResearch 做补充检索：另一组关键词搜到的标题并入 news_headlines
// （与情绪节点的贡献做并集去重），并汇总成一段研究摘要。
type NewsResearch struct {
	news         *news.Client
	maxHeadlines int
}

func NewNewsResearch(client *news.Client, maxHeadlines int) *NewsResearch {
	if maxHeadlines <= 0 {
		maxHeadlines = 10
	}
	return &NewsResearch{news: client, maxHeadlines: maxHeadlines}
}

func (n *NewsResearch) Run(ctx context.Context, snap *state.TradingState) (*state.Delta, error) {
	items, err := n.news.Search(ctx, fmt.Sprintf("%s stock analysis", snap.Ticker), n.maxHeadlines)
	if err != nil {
		return nil, fmt.Errorf("research search: %w", err)
	}

	headlines := make([]string, 0, len(items))
	var b strings.Builder
	fmt.Fprintf(&b, "Research digest for %s (%d items):\n", snap.Ticker, len(items))
	for _, item := range items {
		headlines = append(headlines, item.Title)
		fmt.Fprintf(&b, "- %s [%s, %s]\n", item.Title, item.Source, item.PublishedAt.Format("01-02"))
	}
	if len(items) == 0 {
		b.WriteString("- no recent coverage found\n")
	}

	delta := state.NewDelta().
		Set(state.FieldNewsHeadlines, headlines).
		Set(state.FieldResearchReport, b.String()).
		AddMessage(state.AgentMessage{
			Node:    "news_research",
			Content: fmt.Sprintf("items=%d", len(items)),
			At:      time.Now(),
		})
	return delta, nil
}
