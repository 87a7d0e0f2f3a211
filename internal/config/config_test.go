package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATA_SOURCE", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	"APCA_API_DATA_URL", "REDIS_ADDR", "REDIS_PASSWORD", "SQLITE_PATH", "PARQUET_DIR", "HTTPS_PROXY",
	"HTTP_ADDR", "METRICS_ADDR", "CRON_SCAN", "CRON_FX", "RUN_ON_START", "SCAN_WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.DataSource.Bars)
	assert.Equal(t, model.DefaultCriteria(), cfg.Screener.Criteria)
	assert.Equal(t, "3mo", cfg.Screener.Period)
	assert.Equal(t, 14, cfg.Screener.RSIWindow)
	assert.Equal(t, 15*time.Second, cfg.Screener.CallTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.FXTTL)
	assert.Equal(t, "0 30 6 * * 2-6", cfg.Schedule.ScanCron)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.False(t, cfg.NotifyEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "100"
screener:
  criteria:
    max_rsi: 35
    max_per: 30
    min_roe_percent: 15
  period: 6mo
  workers: 4
  call_timeout: 5s
cache:
  bars_ttl: 30m
schedule:
  fx_cron: "0 0 8 * * *"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("CRON_SCAN", "0 0 7 * * 2-6")
	t.Setenv("RUN_ON_START", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "100", cfg.Telegram.ChatID)
	assert.Equal(t, model.Criteria{MaxRSI: 35, MaxPER: 30, MinROEPercent: 15}, cfg.Screener.Criteria)
	assert.Equal(t, "6mo", cfg.Screener.Period)
	assert.Equal(t, 4, cfg.Screener.Workers)
	assert.Equal(t, 5*time.Second, cfg.Screener.CallTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Cache.BarsTTL)
	assert.Equal(t, "0 0 7 * * 2-6", cfg.Schedule.ScanCron)
	assert.Equal(t, "0 0 8 * * *", cfg.Schedule.FXCron)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.NotifyEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "screener: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "x" }, "ChatID"},
		{"unknown bars source", func(c *Config) { c.DataSource.Bars = "bloomberg" }, "Bars"},
		{"alpaca without keys", func(c *Config) { c.DataSource.Bars = "alpaca" }, "AlpacaKey"},
		{"alpaca with keys", func(c *Config) {
			c.DataSource.Bars = "alpaca"
			c.DataSource.AlpacaKey, c.DataSource.AlpacaSecret = "k", "s"
		}, ""},
		{"bad period", func(c *Config) { c.Screener.Period = "2w" }, "Period"},
		{"zero workers", func(c *Config) { c.Screener.Workers = 0 }, "Workers"},
		{"short timeout", func(c *Config) { c.Screener.CallTimeout = time.Millisecond }, "CallTimeout"},
		{"bad redis addr", func(c *Config) { c.Cache.RedisAddr = "redis" }, "RedisAddr"},
		{"bad scan cron", func(c *Config) { c.Schedule.ScanCron = "every day" }, "scan_cron"},
		{"five field cron", func(c *Config) { c.Schedule.FXCron = "0 9 * * *" }, "fx_cron"},
		{"descriptor cron", func(c *Config) { c.Schedule.FXCron = "@daily" }, ""},
		{"nan criteria", func(c *Config) {
			zero := 0.0
			c.Screener.Criteria.MaxPER = zero / zero
		}, "max_per"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
