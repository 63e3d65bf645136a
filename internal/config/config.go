package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"smartfollow/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	EVM       EVMConfig       `mapstructure:"evm"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Rounds    RoundsConfig    `mapstructure:"rounds"`
	Classify  ClassifyConfig  `mapstructure:"classify"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SolanaConfig covers Solana RPC access.
type SolanaConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EVMConfig covers EVM-chain RPC access for log-based scans.
type EVMConfig struct {
	Chain          string        `mapstructure:"chain"`
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AvgBlockTime   time.Duration `mapstructure:"avg_block_time"`
}

// PricingConfig captures the external USD price lookup.
type PricingConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GatewayConfig tunes the adaptive chunked range scanner.
type GatewayConfig struct {
	MaxSpan int           `mapstructure:"max_span"`
	MinSpan int           `mapstructure:"min_span"`
	Backoff time.Duration `mapstructure:"backoff"`
	MaxTxs  int           `mapstructure:"max_txs"`
}

// RoundsConfig tunes round reconstruction.
type RoundsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClassifyConfig tunes the classification pipeline.
type ClassifyConfig struct {
	BatchLimit   int           `mapstructure:"batch_limit"`
	InsiderTopN  int           `mapstructure:"insider_top_n"`
	CallInterval time.Duration `mapstructure:"call_interval"`
}

// DiscoveryConfig tunes candidate discovery.
type DiscoveryConfig struct {
	HolderTopN     int           `mapstructure:"holder_top_n"`
	EarlyWindow    time.Duration `mapstructure:"early_window"`
	EarlyOutTopN   int           `mapstructure:"early_out_top_n"`
	EpochBudget    int           `mapstructure:"epoch_budget"`
	LookbackBlocks int64         `mapstructure:"lookback_blocks"`
}

// ScoringConfig bounds the per-address scoring fan-out.
type ScoringConfig struct {
	Workers      int     `mapstructure:"workers"`
	RatePerSec   float64 `mapstructure:"rate_per_sec"`
	ProgressTick int     `mapstructure:"progress_tick"`
}

// RankingConfig drives rank filtering and ordering.
type RankingConfig struct {
	MinRounds  int     `mapstructure:"min_rounds"`
	MinWinRate float64 `mapstructure:"min_win_rate"`
	MinBalance float64 `mapstructure:"min_balance"`
	MaxBalance float64 `mapstructure:"max_balance"`
	SortBy     string  `mapstructure:"sort_by"`
	TopK       int     `mapstructure:"top_k"`
}

// WatchConfig governs the periodic re-verify loop.
type WatchConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	MinWinRate float64        `mapstructure:"min_win_rate"`
	Channels   []string       `mapstructure:"channels"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SMARTFOLLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "smartfollow")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("solana.request_timeout", "15s")

	v.SetDefault("evm.chain", "bsc")
	v.SetDefault("evm.request_timeout", "15s")
	v.SetDefault("evm.avg_block_time", "3s")

	v.SetDefault("pricing.request_timeout", "8s")

	v.SetDefault("gateway.max_span", 4000)
	v.SetDefault("gateway.min_span", 256)
	v.SetDefault("gateway.backoff", "300ms")
	v.SetDefault("gateway.max_txs", 600)

	v.SetDefault("rounds.timeout", "24h")

	v.SetDefault("classify.batch_limit", 200)
	v.SetDefault("classify.insider_top_n", 20)
	v.SetDefault("classify.call_interval", "60ms")

	v.SetDefault("discovery.holder_top_n", 800)
	v.SetDefault("discovery.early_window", "2h")
	v.SetDefault("discovery.early_out_top_n", 100)
	v.SetDefault("discovery.epoch_budget", 12)
	v.SetDefault("discovery.lookback_blocks", int64(120_000))

	v.SetDefault("scoring.workers", 4)
	v.SetDefault("scoring.rate_per_sec", 8.0)
	v.SetDefault("scoring.progress_tick", 20)

	v.SetDefault("ranking.min_rounds", 3)
	v.SetDefault("ranking.min_win_rate", 0.5)
	v.SetDefault("ranking.min_balance", 0.0)
	v.SetDefault("ranking.max_balance", 0.0)
	v.SetDefault("ranking.sort_by", "win_rate")
	v.SetDefault("ranking.top_k", 50)

	v.SetDefault("watch.interval", "30m")
	v.SetDefault("watch.align_to_bucket", true)
	v.SetDefault("watch.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_win_rate", 0.6)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.dir", "data/exports")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Gateway.MinSpan <= 0 {
		return fmt.Errorf("gateway.min_span must be greater than zero")
	}
	if c.Gateway.MaxSpan < c.Gateway.MinSpan {
		return fmt.Errorf("gateway.max_span must be >= gateway.min_span")
	}
	if c.Rounds.Timeout <= 0 {
		return fmt.Errorf("rounds.timeout must be greater than zero")
	}
	if c.Classify.InsiderTopN <= 0 {
		return fmt.Errorf("classify.insider_top_n must be greater than zero")
	}
	if c.Scoring.Workers <= 0 {
		return fmt.Errorf("scoring.workers must be greater than zero")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Ranking.MaxBalance > 0 && c.Ranking.MaxBalance < c.Ranking.MinBalance {
		return fmt.Errorf("ranking.max_balance must be >= ranking.min_balance")
	}
	switch c.Ranking.SortBy {
	case "win_rate", "balance", "total_pnl":
	default:
		return fmt.Errorf("ranking.sort_by must be one of win_rate, balance, total_pnl")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}
