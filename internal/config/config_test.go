package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lemmywalk.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Listing.PageSize)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2, cfg.HTTP.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.Retry.BaseDelay)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8750", cfg.Server.Addr)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
[instance]
url = "https://lemmy.world"
username = "alice"

[listing]
page_size = 20

[http]
timeout = "5s"

[http.retry]
max_retries = 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://lemmy.world", cfg.Instance.URL)
	assert.Equal(t, "alice", cfg.Instance.Username)
	assert.Equal(t, 20, cfg.Listing.PageSize)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 4, cfg.HTTP.Retry.MaxRetries)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.HTTP.Retry.MaxDelay)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[instance]
url = "https://lemmy.world"

[listing]
page_size = 20
`)
	t.Setenv("LEMMYWALK_LISTING__PAGE_SIZE", "7")
	t.Setenv("LEMMYWALK_INSTANCE__TOKEN", "secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Listing.PageSize)
	assert.Equal(t, "secret", cfg.Instance.Token)
	assert.Equal(t, "https://lemmy.world", cfg.Instance.URL)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeConfig(t, "[instance\nurl = ")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http.rate_per_second", envKey("LEMMYWALK_HTTP__RATE_PER_SECOND"))
	assert.Equal(t, "server.addr", envKey("LEMMYWALK_SERVER__ADDR"))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemmywalk.toml")
	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, "https://lemmy.ml", cfg.Instance.URL)

	assert.Error(t, InitConfig(path), "refuses to overwrite")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		require.NoError(t, err)
		cfg.Instance.URL = "https://lemmy.ml"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing url", func(c *Config) { c.Instance.URL = "" }, false},
		{"relative url", func(c *Config) { c.Instance.URL = "lemmy.ml" }, false},
		{"zero page size", func(c *Config) { c.Listing.PageSize = 0 }, false},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, false},
		{"negative retries", func(c *Config) { c.HTTP.Retry.MaxRetries = -1 }, false},
		{"no server addr", func(c *Config) { c.Server.Addr = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
