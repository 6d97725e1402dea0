package market

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
)

// MacroData 是宏观节点需要的行情快照来源。
type MacroData interface {
	VIXLevel(ctx context.Context) (float64, error)
	MonthlyReturn(ctx context.Context, symbol string) (float64, error)
}

// Yahoo 用 Yahoo Finance 公共接口取 VIX 与 ETF 行情，不需要 key。
type Yahoo struct{}

func NewYahoo() *Yahoo { return &Yahoo{} }

// VIXLevel 返回 ^VIX 的最新市场价。
func (y *Yahoo) VIXLevel(ctx context.Context) (float64, error) {
	q, err := quote.Get("^VIX")
	if err != nil {
		return 0, fmt.Errorf("market: get vix quote: %w", err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("market: empty vix quote")
	}
	return q.RegularMarketPrice, nil
}

// MonthlyReturn 返回 symbol 过去约一个月的涨跌幅（小数）。
func (y *Yahoo) MonthlyReturn(ctx context.Context, symbol string) (float64, error) {
	end := time.Now()
	start := end.AddDate(0, -1, 0)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var first, last float64
	for iter.Next() {
		bar := iter.Bar()
		px, _ := bar.Close.Float64()
		if px <= 0 {
			continue
		}
		if first == 0 {
			first = px
		}
		last = px
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("market: chart for %s: %w", symbol, err)
	}
	if first == 0 || last == 0 {
		return 0, fmt.Errorf("market: no usable closes for %s", symbol)
	}
	return last/first - 1, nil
}
