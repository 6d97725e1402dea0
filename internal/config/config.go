package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取主配置文件并补全默认值。环境变量可覆盖敏感字段，
// 避免把密钥写进配置文件。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Broker.Alpaca.APIKey, "ALPACA_API_KEY")
	overrideString(&c.Broker.Alpaca.SecretKey, "ALPACA_SECRET_KEY")
	overrideString(&c.Broker.Binance.APIKey, "BINANCE_API_KEY")
	overrideString(&c.Broker.Binance.SecretKey, "BINANCE_SECRET_KEY")
	overrideString(&c.AI.APIKey, "OPENAI_API_KEY")
	overrideString(&c.Notify.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&c.Notify.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
}

func overrideString(dst *string, env string) {
	if val := strings.TrimSpace(os.Getenv(env)); val != "" {
		*dst = val
	}
}
