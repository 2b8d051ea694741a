package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/enoch4gor/btc-dca-backtester/internal/logger"
	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// ErrUnknownStrategy is returned by Strategy for names not in the config.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Price data providers.
const (
	ProviderBinance   = "binance"
	ProviderCoinGecko = "coingecko"
	ProviderSynthetic = "synthetic"
)

// DataSource selects where daily prices come from.
type DataSource struct {
	Provider          string  `yaml:"provider"`
	Symbol            string  `yaml:"symbol"`  // exchange pair, e.g. BTCUSDT
	CoinID            string  `yaml:"coin_id"` // CoinGecko id, e.g. bitcoin
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Fallback switches to synthetic prices when the provider fails. Defaults to true.
	Fallback *bool `yaml:"fallback"`
	// Seed of the synthetic series, 0 means time-based.
	Seed int64 `yaml:"seed"`
}

// FallbackEnabled reports whether synthetic data may replace a failed fetch.
func (d DataSource) FallbackEnabled() bool {
	return d.Fallback == nil || *d.Fallback
}

// Sentiment configures the Fear & Greed index source.
type Sentiment struct {
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled defaults to true.
func (s Sentiment) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Config holds all application configuration.
type Config struct {
	DataSource DataSource            `yaml:"data_source"`
	Sentiment  Sentiment             `yaml:"sentiment"`
	Strategies []model.NamedStrategy `yaml:"strategies"`
	Database   struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotEnv(filepath.Dir(path))
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// loadDotEnv loads the first .env found next to the config or in the working
// directory. Variables already set in the environment win.
func loadDotEnv(dir string) {
	for _, p := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_SYMBOL"); v != "" {
		c.DataSource.Symbol = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse DATA_REQUESTS_PER_SECOND: %w", err)
		}
		c.DataSource.RequestsPerSecond = rps
	}
	if v := os.Getenv("FEAR_GREED_URL"); v != "" {
		c.Sentiment.URL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderBinance
	}
	if c.DataSource.Symbol == "" {
		c.DataSource.Symbol = "BTCUSDT"
	}
	if c.DataSource.CoinID == "" {
		c.DataSource.CoinID = "bitcoin"
	}
	if c.DataSource.BaseURL == "" {
		switch c.DataSource.Provider {
		case ProviderBinance:
			c.DataSource.BaseURL = "https://api.binance.com"
		case ProviderCoinGecko:
			c.DataSource.BaseURL = "https://api.coingecko.com/api/v3"
		}
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 5
	}
	if c.Sentiment.URL == "" {
		c.Sentiment.URL = "https://api.alternative.me/fng/?limit=0"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 10 0 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/dca_backtests.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []model.NamedStrategy{DefaultStrategy()}
	}
}

// DefaultStrategy is a plain weekly DCA used when no strategies are configured.
func DefaultStrategy() model.NamedStrategy {
	return model.NamedStrategy{
		Name: "weekly-dca",
		Config: model.StrategyConfig{
			StartDate:          model.NewDay(2018, 1, 1),
			EndDate:            model.NewDay(2024, 12, 31),
			Amount:             100,
			Frequency:          model.FrequencyWeekly,
			DayOfWeek:          1,
			DayOfMonth:         1,
			TargetRatio:        50,
			RebalanceFrequency: model.RebalanceMonthly,
			Leverage:           1,
			FearGreedThreshold: 25,
			MAThresholdType:    model.MA200,
		},
	}
}

// Validate checks the data source and every configured strategy.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderBinance, ProviderCoinGecko, ProviderSynthetic:
	default:
		return fmt.Errorf("data_source.provider %q is not one of binance, coingecko, synthetic", c.DataSource.Provider)
	}
	if c.DataSource.RequestsPerSecond <= 0 {
		return fmt.Errorf("data_source.requests_per_second must be positive")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i := range c.Strategies {
		st := &c.Strategies[i]
		if st.Name == "" {
			return fmt.Errorf("strategies[%d].name is required", i)
		}
		if seen[st.Name] {
			return fmt.Errorf("strategy %q is defined twice", st.Name)
		}
		seen[st.Name] = true
		if err := st.Config.Validate(); err != nil {
			return fmt.Errorf("strategy %q: %w", st.Name, err)
		}
	}
	return nil
}

// ValidateTelegram checks the fields watch mode needs.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// Strategy looks up a configured strategy by name.
func (c *Config) Strategy(name string) (model.NamedStrategy, error) {
	for _, st := range c.Strategies {
		if st.Name == name {
			return st, nil
		}
	}
	return model.NamedStrategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
