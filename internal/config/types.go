package config

// Config 是 Tradewind 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Trading  TradingConfig  `toml:"trading"`
	Risk     RiskConfig     `toml:"risk"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Graph    GraphConfig    `toml:"graph"`
	Broker   BrokerConfig   `toml:"broker"`
	AI       AIConfig       `toml:"ai"`
	News     NewsConfig     `toml:"news"`
	Notify   NotifyConfig   `toml:"notify"`
	Store    StoreConfig    `toml:"store"`
	Strategy StrategyConfig `toml:"strategy"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type TradingConfig struct {
	// Tickers 是每个周期依次评估的标的列表。
	Tickers              []string `toml:"tickers"`
	CycleIntervalSeconds int      `toml:"cycle_interval_seconds"`
	ExtendedHours        bool     `toml:"extended_hours"`
	TimeInForce          string   `toml:"time_in_force"`
}

type RiskConfig struct {
	MaxPositionPct  float64 `toml:"max_position_pct"`
	MaxRiskPerTrade float64 `toml:"max_risk_per_trade"`
	MaxDailyLoss    float64 `toml:"max_daily_loss"`
	MinConfidence   float64 `toml:"min_confidence"`
}

type BreakerConfig struct {
	BaseEquity        float64 `toml:"base_equity"`
	MaxDailyLossFrac  float64 `toml:"max_daily_loss_fraction"`
	VIXThreshold      float64 `toml:"vix_threshold"`
	SlippageThreshold float64 `toml:"slippage_threshold"`
}

type GraphConfig struct {
	// NodeTimeoutSeconds 限制单个分析节点的运行时长，0 表示不限制。
	NodeTimeoutSeconds int `toml:"node_timeout_seconds"`
}

type BrokerConfig struct {
	// Backend 选择券商网关：alpaca（美股）或 binance（现货）。
	Backend string        `toml:"backend"`
	Alpaca  AlpacaConfig  `toml:"alpaca"`
	Binance BinanceConfig `toml:"binance"`
}

type AlpacaConfig struct {
	APIKey      string `toml:"api_key"`
	SecretKey   string `toml:"secret_key"`
	Paper       bool   `toml:"paper"`
	BaseURL     string `toml:"base_url"`
	DataBaseURL string `toml:"data_base_url"`
}

type BinanceConfig struct {
	APIKey    string `toml:"api_key"`
	SecretKey string `toml:"secret_key"`
	BaseURL   string `toml:"base_url"`
}

type AIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

type NewsConfig struct {
	MaxHeadlines int    `toml:"max_headlines"`
	Language     string `toml:"language"`
	Country      string `toml:"country"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
	Kafka    KafkaConfig    `toml:"kafka"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`
}

type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type StoreConfig struct {
	TradeDBPath string `toml:"trade_db_path"`
	CycleDBPath string `toml:"cycle_db_path"`
}

type StrategyConfig struct {
	// ParamsPath 指向按标的覆盖指标参数的 YAML 文件，可热更新。
	ParamsPath string `toml:"params_path"`
}
