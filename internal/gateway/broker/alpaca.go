package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradewind/internal/logger"

	"github.com/go-resty/resty/v2"
)

// 中文说明：
// Alpaca 网关：通过 v2 REST API 下限价单、拉取日 K 与账户快照。
// 交易与行情走不同的 BaseURL（paper/live 与 data 域名分离）。

type AlpacaConfig struct {
	APIKey      string
	SecretKey   string
	BaseURL     string
	DataBaseURL string
	Timeout     time.Duration
}

type Alpaca struct {
	trading *resty.Client
	data    *resty.Client
}

func NewAlpaca(cfg AlpacaConfig) (*Alpaca, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("alpaca: api_key/secret_key required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	newClient := func(baseURL string) *resty.Client {
		c := resty.New()
		c.SetBaseURL(strings.TrimRight(baseURL, "/"))
		c.SetTimeout(cfg.Timeout)
		c.SetHeader("APCA-API-KEY-ID", cfg.APIKey)
		c.SetHeader("APCA-API-SECRET-KEY", cfg.SecretKey)
		c.SetRetryCount(2)
		return c
	}
	return &Alpaca{
		trading: newClient(cfg.BaseURL),
		data:    newClient(cfg.DataBaseURL),
	}, nil
}

func (a *Alpaca) Name() string { return "alpaca" }

type alpacaOrder struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

func (a *Alpaca) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("alpaca: quantity must be positive")
	}
	body := map[string]any{
		"symbol":         req.Symbol,
		"qty":            strconv.Itoa(req.Qty),
		"side":           strings.ToLower(req.Side),
		"type":           "limit",
		"limit_price":    strconv.FormatFloat(req.LimitPrice, 'f', 2, 64),
		"time_in_force":  strings.ToLower(req.TimeInForce),
		"extended_hours": req.ExtendedHours,
	}
	if req.ClientOrderID != "" {
		body["client_order_id"] = req.ClientOrderID
	}
	var out alpacaOrder
	resp, err := a.trading.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/v2/orders")
	if err != nil {
		return nil, fmt.Errorf("alpaca submit order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca submit order: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	order := &Order{ID: out.ID, Status: out.Status}
	if out.FilledAvgPrice != "" {
		if px, perr := strconv.ParseFloat(out.FilledAvgPrice, 64); perr == nil && px > 0 {
			order.FilledAvgPrice = px
			order.HasFill = true
		}
	}
	return order, nil
}

type alpacaBars struct {
	Bars []struct {
		T time.Time `json:"t"`
		O float64   `json:"o"`
		H float64   `json:"h"`
		L float64   `json:"l"`
		C float64   `json:"c"`
		V float64   `json:"v"`
	} `json:"bars"`
}

func (a *Alpaca) GetBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	if limit <= 0 {
		limit = 100
	}
	start := time.Now().AddDate(0, 0, -limit*2).UTC().Format(time.RFC3339)
	var out alpacaBars
	resp, err := a.data.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe": "1Day",
			"limit":     strconv.Itoa(limit),
			"start":     start,
			"feed":      "iex",
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/v2/stocks/%s/bars", symbol))
	if err != nil {
		return nil, fmt.Errorf("alpaca bars: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpaca bars: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	bars := make([]Bar, 0, len(out.Bars))
	for _, b := range out.Bars {
		bars = append(bars, Bar{Time: b.T, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V})
	}
	return bars, nil
}

type alpacaAccount struct {
	PortfolioValue string `json:"portfolio_value"`
	BuyingPower    string `json:"buying_power"`
	Cash           string `json:"cash"`
	Equity         string `json:"equity"`
	LastEquity     string `json:"last_equity"`
}

func (a *Alpaca) GetAccount(ctx context.Context) (Account, error) {
	var out alpacaAccount
	resp, err := a.trading.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/account")
	if err != nil {
		return Account{}, fmt.Errorf("alpaca account: %w", err)
	}
	if resp.IsError() {
		return Account{}, fmt.Errorf("alpaca account: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	acc := Account{
		PortfolioValue: parseFloat(out.PortfolioValue),
		BuyingPower:    parseFloat(out.BuyingPower),
		Cash:           parseFloat(out.Cash),
	}
	// 今日盈亏 = 当前净值 - 昨收净值。
	if eq, last := parseFloat(out.Equity), parseFloat(out.LastEquity); eq > 0 && last > 0 {
		acc.DailyPnL = eq - last
	}
	return acc, nil
}

type alpacaLatestTrade struct {
	Trade struct {
		P float64 `json:"p"`
	} `json:"trade"`
}

func (a *Alpaca) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	var out alpacaLatestTrade
	resp, err := a.data.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/v2/stocks/%s/trades/latest", symbol))
	if err != nil {
		return 0, fmt.Errorf("alpaca latest trade: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("alpaca latest trade: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if out.Trade.P <= 0 {
		return 0, fmt.Errorf("alpaca latest trade: no price for %s", symbol)
	}
	return out.Trade.P, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		logger.Debugf("alpaca: unparsable numeric %q", s)
		return 0
	}
	return v
}
