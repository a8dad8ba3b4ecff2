package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"GEMSentinel/internal/model"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// InstrumentConfig is one entry of the instrument universe.
type InstrumentConfig struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Category string `yaml:"category"`
}

// Config holds all application configuration.
type Config struct {
	Instruments []InstrumentConfig `yaml:"instruments"`
	DataSource  struct {
		Provider       string        `yaml:"provider"` // yahoo | alpaca | vstrader | mock
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		Timeout        time.Duration `yaml:"timeout"`
		RateLimitRPS   float64       `yaml:"rate_limit_rps"`
		RateLimitBurst int           `yaml:"rate_limit_burst"`
	} `yaml:"data_source"`
	Engine struct {
		Workers    int `yaml:"workers"`
		BufferDays int `yaml:"buffer_days"` // 0 or unset means 5
	} `yaml:"engine"`
	Cache struct {
		Driver     string        `yaml:"driver"` // none | sqlite | redis
		SQLitePath string        `yaml:"sqlite_path"`
		RedisAddr  string        `yaml:"redis_addr"`
		TTL        time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Schedule struct {
		MonthlyCron string `yaml:"monthly_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	HTTP struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"http"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// DefaultInstruments is the London-listed ETF universe used when none is configured.
var DefaultInstruments = []InstrumentConfig{
	{Name: "EIMI (Emerging Mkt)", Symbol: "EIMI.L", Category: "risk_asset"},
	{Name: "IWDA (World)", Symbol: "IWDA.L", Category: "risk_asset"},
	{Name: "CNDX (Nasdaq 100)", Symbol: "CNDX.L", Category: "risk_asset"},
	{Name: "IB01 (Bonds 0-1y)", Symbol: "IB01.L", Category: "safe_haven"},
	{Name: "CBU0 (Bonds 7-10y)", Symbol: "CBU0.L", Category: "safe_haven"},
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("GEM_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.DataSource.APISecret = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("GEM_CACHE_DRIVER"); v != "" {
		c.Cache.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("CRON_MONTHLY"); v != "" {
		c.Schedule.MonthlyCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.ListenAddr = v
	}
	if v := os.Getenv("GEM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Workers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Instruments) == 0 {
		c.Instruments = append([]InstrumentConfig(nil), DefaultInstruments...)
	}
	if c.DataSource.Provider == "" {
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "vstrader"
		} else {
			c.DataSource.Provider = "yahoo"
		}
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.RateLimitRPS == 0 {
		c.DataSource.RateLimitRPS = 2
	}
	if c.DataSource.RateLimitBurst == 0 {
		c.DataSource.RateLimitBurst = 2
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = 4
	}
	if c.Engine.BufferDays == 0 {
		c.Engine.BufferDays = 5
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "sqlite"
	}
	c.Cache.Driver = strings.ToLower(c.Cache.Driver)
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/gem_sentinel.db"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 12 * time.Hour
	}
	if c.Schedule.MonthlyCron == "" {
		c.Schedule.MonthlyCron = "0 0 9 1 * *"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = "127.0.0.1:8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if _, err := c.InstrumentList(); err != nil {
		return err
	}

	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and data_source.api_secret are required for alpaca")
		}
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for vstrader")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.DataSource.Timeout < 0 {
		return fmt.Errorf("data_source.timeout must not be negative")
	}
	if c.DataSource.RateLimitRPS < 0 {
		return fmt.Errorf("data_source.rate_limit_rps must not be negative")
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1")
	}
	if c.Engine.BufferDays < 1 {
		return fmt.Errorf("engine.buffer_days must be at least 1")
	}

	switch c.Cache.Driver {
	case "none", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.MonthlyCron); err != nil {
		return fmt.Errorf("schedule.monthly_cron: %w", err)
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required")
		}
		if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id must be numeric: %w", err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// InstrumentList converts the configured universe into model instruments and checks it.
func (c *Config) InstrumentList() ([]model.Instrument, error) {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for i, ic := range c.Instruments {
		cat, err := model.ParseCategory(ic.Category)
		if err != nil {
			return nil, fmt.Errorf("instruments[%d]: %w", i, err)
		}
		name := ic.Name
		if name == "" {
			name = ic.Symbol
		}
		out = append(out, model.Instrument{Name: name, Symbol: ic.Symbol, Category: cat})
	}
	if err := model.ValidateUniverse(out); err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	return out, nil
}
