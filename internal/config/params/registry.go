package params

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tradewind/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TickerParams 描述单个标的的指标参数，缺省值在 normalize 中补齐。
type TickerParams struct {
	RSI RSIParams `mapstructure:"rsi" yaml:"rsi"`
	SMA SMAParams `mapstructure:"sma" yaml:"sma"`
	ATR ATRParams `mapstructure:"atr" yaml:"atr"`
}

type RSIParams struct {
	Window        int     `mapstructure:"window" yaml:"window"`
	BuyThreshold  float64 `mapstructure:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold float64 `mapstructure:"sell_threshold" yaml:"sell_threshold"`
}

type SMAParams struct {
	FastWindow int `mapstructure:"fast_window" yaml:"fast_window"`
	SlowWindow int `mapstructure:"slow_window" yaml:"slow_window"`
}

type ATRParams struct {
	Window int `mapstructure:"window" yaml:"window"`
}

// FileConfig 映射参数文件：default 段 + 按标的覆盖。
type FileConfig struct {
	Default TickerParams            `mapstructure:"default" yaml:"default"`
	Tickers map[string]TickerParams `mapstructure:"tickers" yaml:"tickers"`
}

// Snapshot 公开的参数快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Default  TickerParams
	Tickers  map[string]TickerParams
}

// Registry 管理策略参数文件并监听热更新。
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取参数文件并开始监听变更。path 为空时返回一个
// 只含内置默认值的静态 registry。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = Snapshot{Version: 1, LoadedAt: time.Now(), Default: builtinDefaults()}
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read strategy params failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("strategy params reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) reload() error {
	if err := r.v.ReadInConfig(); err != nil {
		return err
	}
	var fc FileConfig
	if err := r.v.Unmarshal(&fc); err != nil {
		return fmt.Errorf("parse strategy params failed: %w", err)
	}
	def := normalize(fc.Default)
	tickers := make(map[string]TickerParams, len(fc.Tickers))
	for name, tp := range fc.Tickers {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		tickers[key] = normalizeWith(tp, def)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Default:  def,
		Tickers:  tickers,
	}
	r.mu.Unlock()
	logger.Infof("strategy params loaded path=%s tickers=%d", r.path, len(tickers))
	return nil
}

// Resolve 返回指定标的的参数，未配置时回落到 default 段。
func (r *Registry) Resolve(ticker string) TickerParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tp, ok := r.snapshot.Tickers[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return tp
	}
	return r.snapshot.Default
}

// Snapshot 返回当前参数集副本。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.snapshot
	out.Tickers = make(map[string]TickerParams, len(r.snapshot.Tickers))
	for k, v := range r.snapshot.Tickers {
		out.Tickers[k] = v
	}
	return out
}

func builtinDefaults() TickerParams {
	return TickerParams{
		RSI: RSIParams{Window: 14, BuyThreshold: 30, SellThreshold: 70},
		SMA: SMAParams{FastWindow: 20, SlowWindow: 50},
		ATR: ATRParams{Window: 14},
	}
}

func normalize(tp TickerParams) TickerParams {
	return normalizeWith(tp, builtinDefaults())
}

func normalizeWith(tp, fallback TickerParams) TickerParams {
	if tp.RSI.Window <= 0 {
		tp.RSI.Window = fallback.RSI.Window
	}
	if tp.RSI.BuyThreshold <= 0 {
		tp.RSI.BuyThreshold = fallback.RSI.BuyThreshold
	}
	if tp.RSI.SellThreshold <= 0 {
		tp.RSI.SellThreshold = fallback.RSI.SellThreshold
	}
	if tp.SMA.FastWindow <= 0 {
		tp.SMA.FastWindow = fallback.SMA.FastWindow
	}
	if tp.SMA.SlowWindow <= 0 {
		tp.SMA.SlowWindow = fallback.SMA.SlowWindow
	}
	if tp.ATR.Window <= 0 {
		tp.ATR.Window = fallback.ATR.Window
	}
	return tp
}
