package app

import (
	"fmt"
	"time"

	"tradewind/internal/agent"
	"tradewind/internal/breaker"
	"tradewind/internal/config"
	"tradewind/internal/config/params"
	"tradewind/internal/executor"
	"tradewind/internal/gateway/broker"
	"tradewind/internal/gateway/market"
	"tradewind/internal/gateway/news"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/gateway/provider"
	"tradewind/internal/graph"
	"tradewind/internal/logger"
	"tradewind/internal/risk"
	"tradewind/internal/store/cyclelog"
	"tradewind/internal/store/gormstore"
	"tradewind/internal/strategist"
	"tradewind/internal/transport/http/admin"
)

// Build 按配置装配整个管线。组件之间只通过接口耦合，测试时可替换。
func Build(cfg *config.Config) (*App, error) {
	reg, err := params.NewRegistry(cfg.Strategy.ParamsPath)
	if err != nil {
		return nil, fmt.Errorf("strategy params: %w", err)
	}

	brk, err := broker.New(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}

	newsClient := news.NewClient(news.Options{
		Language: cfg.News.Language,
		Country:  cfg.News.Country,
	})
	macroData := market.NewYahoo()

	model := &provider.OpenAIChatClient{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		Timeout:    time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.AI.MaxRetries,
	}

	dispatcher := buildDispatcher(cfg.Notify)

	trades, err := gormstore.NewGormStore(cfg.Store.TradeDBPath)
	if err != nil {
		return nil, fmt.Errorf("trade store: %w", err)
	}
	cycles, err := cyclelog.NewCycleLogStore(cfg.Store.CycleDBPath)
	if err != nil {
		return nil, fmt.Errorf("cycle store: %w", err)
	}

	cb := breaker.New(breaker.Config{
		BaseEquity:        cfg.Breaker.BaseEquity,
		MaxDailyLossFrac:  cfg.Breaker.MaxDailyLossFrac,
		VIXThreshold:      cfg.Breaker.VIXThreshold,
		SlippageThreshold: cfg.Breaker.SlippageThreshold,
	})
	cb.SetTripHandler(func(reason string, at time.Time) {
		if dispatcher != nil {
			dispatcher.Send(notifier.BreakerMessage(reason))
		}
	})

	engine := graph.New(time.Duration(cfg.Graph.NodeTimeoutSeconds) * time.Second)
	supervisor := agent.NewSupervisor()
	technical := agent.NewTechnical(brk, reg)
	sentiment := agent.NewSentiment(newsClient, cfg.News.MaxHeadlines)
	macro := agent.NewMacro(macroData)
	research := agent.NewNewsResearch(newsClient, cfg.News.MaxHeadlines)
	strat := strategist.New(model)
	gate := risk.New(risk.Limits{
		MaxPositionPct:  cfg.Risk.MaxPositionPct,
		MaxRiskPerTrade: cfg.Risk.MaxRiskPerTrade,
		MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
		MinConfidence:   cfg.Risk.MinConfidence,
	})
	exec := executor.New(brk, trades, dispatcher, executor.Options{
		TimeInForce:   cfg.Trading.TimeInForce,
		ExtendedHours: cfg.Trading.ExtendedHours,
	})

	for name, fn := range map[string]graph.NodeFunc{
		graph.NodeSupervisor:   supervisor.Run,
		graph.NodeTechnical:    technical.Run,
		graph.NodeSentiment:    sentiment.Run,
		graph.NodeMacro:        macro.Run,
		graph.NodeNewsResearch: research.Run,
		graph.NodeStrategist:   strat.Run,
		graph.NodeRiskGate:     gate.Evaluate,
		graph.NodeExecutor:     exec.Run,
	} {
		if err := engine.Register(name, fn); err != nil {
			return nil, err
		}
	}

	a := &App{
		cfg:        cfg,
		engine:     engine,
		broker:     brk,
		breaker:    cb,
		trades:     trades,
		cycles:     cycles,
		dispatcher: dispatcher,
		startedAt:  time.Now(),
	}

	httpSrv, err := admin.NewServer(admin.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Breaker: cb,
		Cycles:  cycles,
		Trades:  trades,
		Status:  a,
	})
	if err != nil {
		return nil, fmt.Errorf("admin http: %w", err)
	}
	a.http = httpSrv
	return a, nil
}

func buildDispatcher(cfg config.NotifyConfig) *notifier.Dispatcher {
	var channels []notifier.TextNotifier
	if cfg.Telegram.Enabled {
		channels = append(channels, notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Discord.Enabled {
		channels = append(channels, notifier.NewDiscord(cfg.Discord.WebhookURL))
	}
	if cfg.Kafka.Enabled {
		k, err := notifier.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Errorf("kafka notifier disabled: %v", err)
		} else {
			channels = append(channels, k)
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return notifier.NewDispatcher(channels...)
}
