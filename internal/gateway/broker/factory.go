package broker

import (
	"fmt"
	"strings"

	"tradewind/internal/config"
)

// New 根据配置选择券商后端。
func New(cfg config.BrokerConfig) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "alpaca":
		b, err := NewAlpaca(AlpacaConfig{
			APIKey:      cfg.Alpaca.APIKey,
			SecretKey:   cfg.Alpaca.SecretKey,
			BaseURL:     cfg.Alpaca.BaseURL,
			DataBaseURL: cfg.Alpaca.DataBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case "binance":
		b, err := NewBinance(BinanceConfig{
			APIKey:    cfg.Binance.APIKey,
			SecretKey: cfg.Binance.SecretKey,
			BaseURL:   cfg.Binance.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("broker: unsupported backend %q", cfg.Backend)
	}
}
