package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"TradePulse/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		SignalsTopic  string   `yaml:"signals_topic"`
		DecisionTopic string   `yaml:"decision_topic"`
		LogsTopic     string   `yaml:"logs_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Bybit struct {
		RestURL        string        `yaml:"rest_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Category       string        `yaml:"category"`
		Symbols        []string      `yaml:"symbols"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RatePerSecond  int           `yaml:"rate_per_second"`
		RateBurst      int           `yaml:"rate_burst"`
		CandleCacheTTL time.Duration `yaml:"candle_cache_ttl"`
	} `yaml:"bybit"`
	Telegram struct {
		Enabled bool          `yaml:"enabled"`
		APIURL  string        `yaml:"api_url"`
		Token   string        `yaml:"token"`
		ChatID  string        `yaml:"chat_id"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	Engine   Engine `yaml:"engine"`
	Schedule struct {
		ReactivationInterval time.Duration `yaml:"reactivation_interval"`
		PositionInterval     time.Duration `yaml:"position_interval"`
		HighVolInterval      time.Duration `yaml:"high_vol_interval"`
	} `yaml:"schedule"`
}

// Engine holds the tunables of the evaluation pipeline. Zero values are
// replaced with defaults by Normalize.
type Engine struct {
	EMAShortPeriod   int     `yaml:"ema_short_period"`
	EMALongPeriod    int     `yaml:"ema_long_period"`
	OscillatorPeriod int     `yaml:"oscillator_period"`
	MACDFastPeriod   int     `yaml:"macd_fast_period"`
	MACDSlowPeriod   int     `yaml:"macd_slow_period"`
	MACDSignalPeriod int     `yaml:"macd_signal_period"`
	ATRPeriod        int     `yaml:"atr_period"`
	MFIPeriod        int     `yaml:"mfi_period"`
	MinCandles       int     `yaml:"min_candles"`
	CandleLimit      int     `yaml:"candle_limit"`
	DivergenceLookback int   `yaml:"divergence_lookback"`
	PivotWindow      int     `yaml:"pivot_window"`
	Leverage         float64 `yaml:"leverage"`

	Weights struct {
		Trend      float64 `yaml:"trend"`
		Momentum   float64 `yaml:"momentum"`
		Divergence float64 `yaml:"divergence"`
		Structure  float64 `yaml:"structure"`
		Volatility float64 `yaml:"volatility"`
		Micro      float64 `yaml:"micro"`
	} `yaml:"weights"`

	Reactivation struct {
		MinMatchRatio     float64 `yaml:"min_match_ratio"`
		MinTechnicalScore float64 `yaml:"min_technical_score"`
	} `yaml:"reactivation"`

	ROI struct {
		ReversionThreshold   float64 `yaml:"reversion_threshold"`
		DynamicStopThreshold float64 `yaml:"dynamic_stop_threshold"`
		TakeProfitThreshold  float64 `yaml:"take_profit_threshold"`
		PartialClosePercent  float64 `yaml:"partial_close_percent"`
	} `yaml:"roi"`
}

// Normalize fills unset engine tunables with the documented defaults.
func (e *Engine) Normalize() {
	setInt := func(p *int, def int) {
		if *p <= 0 {
			*p = def
		}
	}
	setFloat := func(p *float64, def float64) {
		if *p == 0 {
			*p = def
		}
	}

	setInt(&e.EMAShortPeriod, 10)
	setInt(&e.EMALongPeriod, 30)
	setInt(&e.OscillatorPeriod, 14)
	setInt(&e.MACDFastPeriod, 12)
	setInt(&e.MACDSlowPeriod, 26)
	setInt(&e.MACDSignalPeriod, 9)
	setInt(&e.ATRPeriod, 14)
	setInt(&e.MFIPeriod, 14)
	setInt(&e.MinCandles, 10)
	setInt(&e.CandleLimit, 200)
	setInt(&e.DivergenceLookback, 60)
	setInt(&e.PivotWindow, 2)
	setFloat(&e.Leverage, 20)

	setFloat(&e.Weights.Trend, 0.30)
	setFloat(&e.Weights.Momentum, 0.20)
	setFloat(&e.Weights.Divergence, 0.20)
	setFloat(&e.Weights.Structure, 0.10)
	setFloat(&e.Weights.Volatility, 0.05)
	setFloat(&e.Weights.Micro, 0.15)

	setFloat(&e.Reactivation.MinMatchRatio, 60)
	setFloat(&e.Reactivation.MinTechnicalScore, 55)

	setFloat(&e.ROI.ReversionThreshold, -30)
	setFloat(&e.ROI.DynamicStopThreshold, 60)
	setFloat(&e.ROI.TakeProfitThreshold, 100)
	setFloat(&e.ROI.PartialClosePercent, 70)
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.Engine.Normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Bybit.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Bybit.RestURL == "" {
		return fmt.Errorf("bybit.rest_url is required")
	}
	if len(c.Bybit.Symbols) == 0 {
		return fmt.Errorf("bybit.symbols cannot be empty")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	w := c.Engine.Weights
	total := w.Trend + w.Momentum + w.Divergence + w.Structure + w.Volatility + w.Micro
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("engine.weights must sum to 1.0, got %.3f", total)
	}
	return nil
}
