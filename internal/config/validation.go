package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	for _, ticker := range t.Tickers {
		if strings.TrimSpace(ticker) == "" {
			return fmt.Errorf("trading.tickers contains empty entry")
		}
	}
	switch strings.ToLower(t.TimeInForce) {
	case "day", "gtc":
	default:
		return fmt.Errorf("trading.time_in_force must be day or gtc, got %q", t.TimeInForce)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be <= 1")
	}
	if r.MaxRiskPerTrade > 1 {
		return fmt.Errorf("risk.max_risk_per_trade must be <= 1")
	}
	if r.MaxDailyLoss > 1 {
		return fmt.Errorf("risk.max_daily_loss must be <= 1")
	}
	if r.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be <= 1")
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(b.Backend)) {
	case "alpaca", "binance":
		return nil
	default:
		return fmt.Errorf("broker.backend must be alpaca or binance, got %q", b.Backend)
	}
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram enabled but bot_token/chat_id missing")
		}
	}
	if n.Discord.Enabled && strings.TrimSpace(n.Discord.WebhookURL) == "" {
		return fmt.Errorf("notify.discord enabled but webhook_url missing")
	}
	if n.Kafka.Enabled && len(n.Kafka.Brokers) == 0 {
		return fmt.Errorf("notify.kafka enabled but brokers missing")
	}
	return nil
}
