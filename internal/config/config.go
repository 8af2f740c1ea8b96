package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DataSourceConfig selects the provider and the tickers to fetch.
type DataSourceConfig struct {
	Provider string   `yaml:"provider" envconfig:"DATA_PROVIDER" validate:"oneof=yahoo yfinance rest mock"`
	BaseURL  string   `yaml:"base_url" envconfig:"DATA_SOURCE_BASE_URL" validate:"required_if=Provider rest"`
	APIKey   string   `yaml:"api_key" envconfig:"DATA_SOURCE_API_KEY"`
	Tickers  []string `yaml:"tickers" envconfig:"TICKERS" validate:"required,min=1,dive,required"`
	Period   string   `yaml:"period" envconfig:"STOCK_PERIOD" validate:"oneof=1mo 3mo 6mo 1y 2y 5y 10y ytd max"`
	// RequestsPerSecond caps fetches across all tickers.
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"DATA_SOURCE_RPS" validate:"gt=0"`
}

// IndicatorConfig holds the moving average windows. Nil means unset, so an
// explicit zero reaches Validate instead of becoming the default.
type IndicatorConfig struct {
	ShortWindow *int `yaml:"sma_short_window" envconfig:"SMA_SHORT_WINDOW" validate:"required,min=1"`
	LongWindow  *int `yaml:"sma_long_window" envconfig:"SMA_LONG_WINDOW" validate:"required,min=1"`
}

// PathsConfig locates raw, processed and state files.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR"`
	StateFile    string `yaml:"state_file" envconfig:"STATE_FILE"`
}

type ScheduleConfig struct {
	DailyCron string `yaml:"daily_cron" envconfig:"CRON_DAILY" validate:"required"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID" validate:"required_with=BotToken"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" envconfig:"HTTP_ADDR"`
	CORSOrigins []string `yaml:"cors_origins" envconfig:"HTTP_CORS_ORIGINS"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty" envconfig:"LOG_PRETTY"`
}

// Config holds all application configuration.
type Config struct {
	DataSource  DataSourceConfig `yaml:"data_source"`
	Indicators  IndicatorConfig  `yaml:"indicators"`
	Paths       PathsConfig      `yaml:"paths"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Database    DatabaseConfig   `yaml:"database"`
	Telegram    TelegramConfig   `yaml:"telegram"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Parallelism int              `yaml:"parallelism" validate:"min=1,max=64"`
	Proxy       string           `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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

	// Environment variable overrides
	sections := []interface{}{
		&cfg.DataSource, &cfg.Indicators, &cfg.Paths, &cfg.Schedule,
		&cfg.Database, &cfg.Telegram, &cfg.Server, &cfg.Log,
	}
	for _, s := range sections {
		if err := envconfig.Process("", s); err != nil {
			return nil, fmt.Errorf("load config from env: %w", err)
		}
	}
	var top struct {
		Parallelism int    `envconfig:"PARALLELISM"`
		Proxy       string `envconfig:"HTTPS_PROXY"`
	}
	if err := envconfig.Process("", &top); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if top.Parallelism != 0 {
		cfg.Parallelism = top.Parallelism
	}
	if top.Proxy != "" {
		cfg.Proxy = top.Proxy
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.DataSource.Tickers) == 0 {
		c.DataSource.Tickers = []string{"AAPL", "GOOGL", "MSFT"}
	}
	for i, t := range c.DataSource.Tickers {
		c.DataSource.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "rest"
		}
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.DataSource.Period == "" {
		c.DataSource.Period = "1y"
	}
	if c.Indicators.ShortWindow == nil {
		short := 5
		c.Indicators.ShortWindow = &short
	}
	if c.Indicators.LongWindow == nil {
		long := 20
		c.Indicators.LongWindow = &long
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.RawDir == "" {
		c.Paths.RawDir = filepath.Join(c.Paths.DataDir, "raw")
	}
	if c.Paths.ProcessedDir == "" {
		c.Paths.ProcessedDir = filepath.Join(c.Paths.DataDir, "processed")
	}
	if c.Paths.StateFile == "" {
		c.Paths.StateFile = filepath.Join(c.Paths.DataDir, "run_state.json")
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = filepath.Join(c.Paths.DataDir, "stock_data.db")
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Parallelism == 0 {
		c.Parallelism = 4
	}
}

// Validate checks field constraints and the cron expression.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.DailyCron); err != nil {
		return fmt.Errorf("invalid config: schedule.daily_cron: %w", err)
	}
	return nil
}
