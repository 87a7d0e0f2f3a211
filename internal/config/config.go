package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	DataSource struct {
		// Bars selects the price-history provider. Fundamentals always come
		// from Yahoo except in mock mode.
		Bars         string `yaml:"bars" validate:"oneof=yahoo alpaca mock"`
		AlpacaKey    string `yaml:"alpaca_key" validate:"required_if=Bars alpaca"`
		AlpacaSecret string `yaml:"alpaca_secret" validate:"required_if=Bars alpaca"`
		AlpacaURL    string `yaml:"alpaca_url" validate:"omitempty,url"`
		AlpacaFeed   string `yaml:"alpaca_feed" validate:"omitempty,oneof=iex sip"`
	} `yaml:"data_source"`
	Screener struct {
		Criteria      model.Criteria `yaml:"criteria"`
		Period        string         `yaml:"period" validate:"oneof=1mo 3mo 6mo 1y 5y"`
		RSIWindow     int            `yaml:"rsi_window" validate:"min=2"`
		Workers       int            `yaml:"workers" validate:"min=1,max=64"`
		RatePerSecond float64        `yaml:"rate_per_second" validate:"gte=0"`
		CallTimeout   time.Duration  `yaml:"call_timeout" validate:"min=1s"`
	} `yaml:"screener"`
	Cache struct {
		RedisAddr       string        `yaml:"redis_addr" validate:"omitempty,hostname_port"`
		RedisPassword   string        `yaml:"redis_password"`
		RedisDB         int           `yaml:"redis_db" validate:"gte=0"`
		KeyPrefix       string        `yaml:"key_prefix"`
		BarsTTL         time.Duration `yaml:"bars_ttl" validate:"gte=0"`
		FundamentalsTTL time.Duration `yaml:"fundamentals_ttl" validate:"gte=0"`
		UniverseTTL     time.Duration `yaml:"universe_ttl" validate:"gte=0"`
		FXTTL           time.Duration `yaml:"fx_ttl" validate:"gte=0"`
	} `yaml:"cache"`
	Schedule struct {
		ScanCron   string `yaml:"scan_cron" validate:"required"`
		FXCron     string `yaml:"fx_cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		ParquetDir string `yaml:"parquet_dir"`
	} `yaml:"database"`
	Server struct {
		HTTPAddr    string `yaml:"http_addr" validate:"required"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy" validate:"omitempty,url"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
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
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	str("DATA_SOURCE", &c.DataSource.Bars)
	str("APCA_API_KEY_ID", &c.DataSource.AlpacaKey)
	str("APCA_API_SECRET_KEY", &c.DataSource.AlpacaSecret)
	str("APCA_API_DATA_URL", &c.DataSource.AlpacaURL)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("SQLITE_PATH", &c.Database.SQLitePath)
	str("PARQUET_DIR", &c.Database.ParquetDir)
	str("HTTPS_PROXY", &c.Proxy)
	str("HTTP_ADDR", &c.Server.HTTPAddr)
	str("METRICS_ADDR", &c.Server.MetricsAddr)
	str("CRON_SCAN", &c.Schedule.ScanCron)
	str("CRON_FX", &c.Schedule.FXCron)

	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Schedule.RunOnStart = b
		}
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Screener.Workers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Bars == "" {
		c.DataSource.Bars = "yahoo"
	}
	if c.DataSource.AlpacaFeed == "" {
		c.DataSource.AlpacaFeed = "iex"
	}

	if c.Screener.Criteria == (model.Criteria{}) {
		c.Screener.Criteria = model.DefaultCriteria()
	}
	if c.Screener.Period == "" {
		c.Screener.Period = string(model.Period3mo)
	}
	if c.Screener.RSIWindow == 0 {
		c.Screener.RSIWindow = 14
	}
	if c.Screener.Workers == 0 {
		c.Screener.Workers = 8
	}
	if c.Screener.RatePerSecond == 0 {
		c.Screener.RatePerSecond = 10
	}
	if c.Screener.CallTimeout == 0 {
		c.Screener.CallTimeout = 15 * time.Second
	}

	if c.Cache.BarsTTL == 0 {
		c.Cache.BarsTTL = time.Hour
	}
	if c.Cache.FundamentalsTTL == 0 {
		c.Cache.FundamentalsTTL = 6 * time.Hour
	}
	if c.Cache.UniverseTTL == 0 {
		c.Cache.UniverseTTL = 24 * time.Hour
	}
	if c.Cache.FXTTL == 0 {
		c.Cache.FXTTL = 10 * time.Minute
	}

	if c.Schedule.ScanCron == "" {
		// 06:30 KST Tue-Sat, after the US close.
		c.Schedule.ScanCron = "0 30 6 * * 2-6"
	}
	if c.Schedule.FXCron == "" {
		c.Schedule.FXCron = "0 0 9 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/godlife.db"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field constraints, screener thresholds and cron expressions.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Screener.Criteria.Validate(); err != nil {
		return err
	}
	if _, err := cronParser.Parse(c.Schedule.ScanCron); err != nil {
		return fmt.Errorf("schedule.scan_cron: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.FXCron); err != nil {
		return fmt.Errorf("schedule.fx_cron: %w", err)
	}
	return nil
}

// NotifyEnabled reports whether Telegram credentials are configured.
func (c *Config) NotifyEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
