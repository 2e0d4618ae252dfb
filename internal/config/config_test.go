package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Scraper.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Scraper.SettleInterval)
	assert.Equal(t, "https://www.bigweb.co.jp", cfg.Scraper.BaseURL)
	assert.Equal(t, StoreBackendBolt, cfg.Store.Backend)
	assert.Equal(t, "ja-JP", cfg.Browser.Locale)
	assert.Equal(t, "stream:cardset_sync", cfg.Relay.Stream)
	assert.Equal(t, int64(10000), cfg.Relay.MaxLen)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCRAPER_MAX_ATTEMPTS", "3")
	t.Setenv("SCRAPER_SETTLE_INTERVAL", "1500ms")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SCRAPER_CONCURRENT_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scraper.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraper.SettleInterval)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3, cfg.Scraper.ConcurrentLimit)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IMAGES_DIR=/var/cards\n"), 0o600))
	os.Unsetenv("IMAGES_DIR")
	t.Cleanup(func() { os.Unsetenv("IMAGES_DIR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/cards", cfg.Images.Dir)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"No concurrency", func(c *Config) { c.Scraper.ConcurrentLimit = 0 }},
		{"No attempts", func(c *Config) { c.Scraper.MaxAttempts = 0 }},
		{"Negative settle", func(c *Config) { c.Scraper.SettleInterval = -time.Second }},
		{"Inverted rate limit", func(c *Config) { c.Scraper.RateLimitMin = time.Hour }},
		{"Unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"Empty bolt path", func(c *Config) { c.Store.BoltPath = "" }},
		{"Relay without postgres", func(c *Config) { c.Relay.Enabled = true }},
		{"Relay batch", func(c *Config) { c.Relay.BatchSize = 0 }},
		{"Relay max len", func(c *Config) { c.Relay.MaxLen = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "cards", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/cards?sslmode=disable", d.DSN())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
