package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// Binance 现货网关。标的写成交易对（如 BTCUSDT），账户价值按计价
// 货币（USDT）余额计。
type Binance struct {
	client *binance.Client
}

type BinanceConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string
}

func NewBinance(cfg BinanceConfig) (*Binance, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("binance: api_key/secret_key required")
	}
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if url := strings.TrimSpace(cfg.BaseURL); url != "" {
		client.BaseURL = url
	}
	return &Binance{client: client}, nil
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Qty <= 0 {
		return nil, fmt.Errorf("binance: quantity must be positive")
	}
	side := binance.SideTypeBuy
	if strings.ToLower(req.Side) == "sell" {
		side = binance.SideTypeSell
	}
	svc := b.client.NewCreateOrderService().
		Symbol(strings.ToUpper(req.Symbol)).
		Side(side).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(strconv.Itoa(req.Qty)).
		Price(decimal.NewFromFloat(req.LimitPrice).StringFixed(2))
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance submit order: %w", err)
	}
	order := &Order{
		ID:     strconv.FormatInt(res.OrderID, 10),
		Status: strings.ToLower(string(res.Status)),
	}
	// Average the fills when the order executed immediately; resting limit
	// orders carry no fill price yet.
	if len(res.Fills) > 0 {
		total := decimal.Zero
		qty := decimal.Zero
		for _, fill := range res.Fills {
			px, perr := decimal.NewFromString(fill.Price)
			if perr != nil {
				continue
			}
			fq, qerr := decimal.NewFromString(fill.Quantity)
			if qerr != nil {
				continue
			}
			total = total.Add(px.Mul(fq))
			qty = qty.Add(fq)
		}
		if qty.IsPositive() {
			avg, _ := total.Div(qty).Float64()
			order.FilledAvgPrice = avg
			order.HasFill = true
		}
	}
	return order, nil
}

func (b *Binance) GetBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	if limit <= 0 {
		limit = 100
	}
	kls, err := b.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval("1d").
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	bars := make([]Bar, 0, len(kls))
	for _, k := range kls {
		bars = append(bars, Bar{
			Time:   time.UnixMilli(k.OpenTime),
			Open:   mustFloat(k.Open),
			High:   mustFloat(k.High),
			Low:    mustFloat(k.Low),
			Close:  mustFloat(k.Close),
			Volume: mustFloat(k.Volume),
		})
	}
	return bars, nil
}

func (b *Binance) GetAccount(ctx context.Context) (Account, error) {
	acc, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("binance account: %w", err)
	}
	var free, locked float64
	for _, bal := range acc.Balances {
		if strings.ToUpper(bal.Asset) != "USDT" {
			continue
		}
		free = mustFloat(bal.Free)
		locked = mustFloat(bal.Locked)
		break
	}
	return Account{
		PortfolioValue: free + locked,
		BuyingPower:    free,
		Cash:           free,
	}, nil
}

func (b *Binance) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(strings.ToUpper(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance price: no quote for %s", symbol)
	}
	return mustFloat(prices[0].Price), nil
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
