package config

import "strings"

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = ":9980"
	}

	if len(c.Trading.Tickers) == 0 {
		c.Trading.Tickers = []string{"AAPL", "MSFT", "GOOGL", "NVDA", "TSLA"}
	}
	if c.Trading.CycleIntervalSeconds <= 0 {
		c.Trading.CycleIntervalSeconds = 900
	}
	if strings.TrimSpace(c.Trading.TimeInForce) == "" {
		c.Trading.TimeInForce = "day"
	}

	if c.Risk.MaxPositionPct <= 0 {
		c.Risk.MaxPositionPct = 0.10
	}
	if c.Risk.MaxRiskPerTrade <= 0 {
		c.Risk.MaxRiskPerTrade = 0.02
	}
	if c.Risk.MaxDailyLoss <= 0 {
		c.Risk.MaxDailyLoss = 0.05
	}
	if c.Risk.MinConfidence <= 0 {
		c.Risk.MinConfidence = 0.6
	}

	if c.Breaker.BaseEquity <= 0 {
		c.Breaker.BaseEquity = 100000
	}
	if c.Breaker.MaxDailyLossFrac <= 0 {
		c.Breaker.MaxDailyLossFrac = 0.05
	}
	if c.Breaker.VIXThreshold <= 0 {
		c.Breaker.VIXThreshold = 40
	}
	if c.Breaker.SlippageThreshold <= 0 {
		c.Breaker.SlippageThreshold = 0.02
	}

	if c.Graph.NodeTimeoutSeconds < 0 {
		c.Graph.NodeTimeoutSeconds = 0
	} else if c.Graph.NodeTimeoutSeconds == 0 {
		c.Graph.NodeTimeoutSeconds = 30
	}

	if strings.TrimSpace(c.Broker.Backend) == "" {
		c.Broker.Backend = "alpaca"
	}
	if strings.TrimSpace(c.Broker.Alpaca.BaseURL) == "" {
		if c.Broker.Alpaca.Paper {
			c.Broker.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
		} else {
			c.Broker.Alpaca.BaseURL = "https://api.alpaca.markets"
		}
	}
	if strings.TrimSpace(c.Broker.Alpaca.DataBaseURL) == "" {
		c.Broker.Alpaca.DataBaseURL = "https://data.alpaca.markets"
	}

	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.AI.MaxRetries <= 0 {
		c.AI.MaxRetries = 2
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		c.AI.Model = "gpt-4o-mini"
	}

	if c.News.MaxHeadlines <= 0 {
		c.News.MaxHeadlines = 10
	}
	if strings.TrimSpace(c.News.Language) == "" {
		c.News.Language = "en"
	}
	if strings.TrimSpace(c.News.Country) == "" {
		c.News.Country = "US"
	}

	if strings.TrimSpace(c.Notify.Kafka.Topic) == "" {
		c.Notify.Kafka.Topic = "tradewind.alerts"
	}

	if strings.TrimSpace(c.Store.TradeDBPath) == "" {
		c.Store.TradeDBPath = "data/trades.db"
	}
	if strings.TrimSpace(c.Store.CycleDBPath) == "" {
		c.Store.CycleDBPath = "data/cycles.db"
	}
}
