package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"SigForge/pkg/util"
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
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		CandleTopic    string   `yaml:"candle_topic"`
		SentimentTopic string   `yaml:"sentiment_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Consumer       struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		Backend        string        `yaml:"backend"` // kafka or clickhouse
	} `yaml:"feed"`
	Pipeline Pipeline `yaml:"pipeline"`
	ML       ML       `yaml:"ml"`
	Backtest Backtest `yaml:"backtest"`
}

// Pipeline holds the evaluation cycle and selection parameters.
type Pipeline struct {
	Symbols          []string      `yaml:"symbols"`
	WorkingTimeframe string        `yaml:"working_timeframe"`
	Timeframes       []string      `yaml:"timeframes"` // confluence set, ascending
	Interval         time.Duration `yaml:"interval"`
	Workers          int           `yaml:"workers"`
	HistoryBars      int           `yaml:"history_bars"`
	Quota            int           `yaml:"quota"`
	TakeProfitPct    float64       `yaml:"take_profit_pct"`
	StopLossPct      float64       `yaml:"stop_loss_pct"`
	MinRewardRisk    float64       `yaml:"min_reward_risk"`
	DuplicateWindow  time.Duration `yaml:"duplicate_window"`
	LeaseTTL         time.Duration `yaml:"lease_ttl"`
	EntryTolerance   float64       `yaml:"entry_tolerance_pct"`
	Weights          struct {
		Strategy  float64 `yaml:"strategy"`
		Sentiment float64 `yaml:"sentiment"`
		ML        float64 `yaml:"ml"`
	} `yaml:"weights"`
}

// ML configures the inference adapter.
type ML struct {
	Family     string             `yaml:"family"` // http or logistic
	ServiceURL string             `yaml:"service_url"`
	Timeout    time.Duration      `yaml:"timeout"`
	Bias       float64            `yaml:"bias"`
	Weights    map[string]float64 `yaml:"weights"` // logistic coefficients by feature name
}

// Backtest configures the backtest job runner.
type Backtest struct {
	Workers      int           `yaml:"workers"`
	MaxHoldBars  int           `yaml:"max_hold_bars"`
	GapTolerance int           `yaml:"gap_tolerance"` // consecutive missing bars before DataGap
	FillPolicy   string        `yaml:"fill_policy"`   // fail or forward_fill
	JobTimeout   time.Duration `yaml:"job_timeout"`
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
	c.applyDefaults()

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

	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Pipeline.Symbols = util.SplitAndTrim(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitAndTrim(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("ML_SERVICE_URL"); v != "" {
		c.ML.ServiceURL = v
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	p := &c.Pipeline
	if p.WorkingTimeframe == "" {
		p.WorkingTimeframe = "1h"
	}
	if len(p.Timeframes) == 0 {
		p.Timeframes = []string{"1h", "4h", "1d"}
	}
	if p.Interval <= 0 {
		p.Interval = time.Hour
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.HistoryBars <= 0 {
		p.HistoryBars = 300
	}
	if p.Quota <= 0 {
		p.Quota = 5
	}
	if p.TakeProfitPct <= 0 {
		p.TakeProfitPct = 3.0
	}
	if p.StopLossPct <= 0 {
		p.StopLossPct = 1.5
	}
	if p.MinRewardRisk <= 0 {
		p.MinRewardRisk = 1.5
	}
	if p.DuplicateWindow <= 0 {
		p.DuplicateWindow = 30 * time.Minute
	}
	if p.LeaseTTL <= 0 {
		p.LeaseTTL = 2 * time.Minute
	}
	if p.EntryTolerance <= 0 {
		p.EntryTolerance = 0.3
	}
	if p.Weights.Strategy == 0 && p.Weights.Sentiment == 0 && p.Weights.ML == 0 {
		p.Weights.Strategy = 0.6
		p.Weights.Sentiment = 0.2
		p.Weights.ML = 0.2
	}

	if c.ML.Family == "" {
		c.ML.Family = "logistic"
	}
	if c.ML.Timeout <= 0 {
		c.ML.Timeout = 3 * time.Second
	}

	b := &c.Backtest
	if b.Workers <= 0 {
		b.Workers = 2
	}
	if b.MaxHoldBars <= 0 {
		b.MaxHoldBars = 48
	}
	if b.GapTolerance <= 0 {
		b.GapTolerance = 3
	}
	if b.FillPolicy == "" {
		b.FillPolicy = "fail"
	}
	if b.JobTimeout <= 0 {
		b.JobTimeout = 10 * time.Minute
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Pipeline.Symbols) == 0 {
		return fmt.Errorf("pipeline.symbols cannot be empty")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	sum := c.Pipeline.Weights.Strategy + c.Pipeline.Weights.Sentiment + c.Pipeline.Weights.ML
	if sum <= 0 {
		return fmt.Errorf("pipeline.weights must sum to a positive value")
	}
	switch c.ML.Family {
	case "http":
		if c.ML.ServiceURL == "" {
			return fmt.Errorf("ml.service_url is required for the http family")
		}
	case "logistic":
	default:
		return fmt.Errorf("ml.family must be 'http' or 'logistic', got '%s'", c.ML.Family)
	}
	switch c.Backtest.FillPolicy {
	case "fail", "forward_fill":
	default:
		return fmt.Errorf("backtest.fill_policy must be 'fail' or 'forward_fill', got '%s'", c.Backtest.FillPolicy)
	}
	if c.Feed.Enabled {
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("feed.websocket_url is required when feed is enabled")
		}
		if c.Feed.Backend != "kafka" && c.Feed.Backend != "clickhouse" {
			return fmt.Errorf("feed.backend must be 'kafka' or 'clickhouse', got '%s'", c.Feed.Backend)
		}
	}
	return nil
}
