package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/lemmywalk/internal/logging"
	"github.com/lemmywalk/internal/retry"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: LEMMYWALK_LISTING__PAGE_SIZE=20.
const EnvPrefix = "LEMMYWALK_"

// Config represents the application configuration
type Config struct {
	Instance struct {
		URL      string `koanf:"url"`
		Username string `koanf:"username"`
		Token    string `koanf:"token"`
	} `koanf:"instance"`

	Listing struct {
		PageSize int    `koanf:"page_size"`
		Language string `koanf:"language"`
	} `koanf:"listing"`

	HTTP struct {
		Timeout       time.Duration `koanf:"timeout"`
		RatePerSecond float64       `koanf:"rate_per_second"`
		Burst         int           `koanf:"burst"`
		Retry         retry.Config  `koanf:"retry"`
	} `koanf:"http"`

	Log logging.Config `koanf:"log"`

	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`
}

func defaults() map[string]interface{} {
	r := retry.DefaultConfig()
	return map[string]interface{}{
		"listing.page_size":      50,
		"listing.language":       "und",
		"http.timeout":           "30s",
		"http.rate_per_second":   5.0,
		"http.burst":             5,
		"http.retry.max_retries": r.MaxRetries,
		"http.retry.base_delay":  r.BaseDelay.String(),
		"http.retry.max_delay":   r.MaxDelay.String(),
		"http.retry.multiplier":  r.Multiplier,
		"http.retry.jitter":      r.Jitter,
		"log.level":              "info",
		"log.pretty":             true,
		"server.addr":            "127.0.0.1:8750",
	}
}

// LoadConfig loads defaults, then the TOML file, then environment overrides
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./lrdata/lemmywalk.toml", "./lemmywalk.toml", "$HOME/.lemmywalk.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// envKey maps LEMMYWALK_HTTP__RATE_PER_SECOND to http.rate_per_second
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// InitConfig writes a sample configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# lemmywalk configuration

[instance]
url = "https://lemmy.ml"
username = "your-username"
# JWT returned by /api/v3/user/login; leave empty to browse anonymously
token = ""

[listing]
page_size = 50
language = "und"

[http]
timeout = "30s"
rate_per_second = 5.0
burst = 5

[http.retry]
max_retries = 2
base_delay = "500ms"
max_delay = "10s"

[log]
level = "info"
pretty = true

[server]
addr = "127.0.0.1:8750"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0600)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Instance.URL == "" {
		return fmt.Errorf("instance url is required")
	}
	u, err := url.Parse(config.Instance.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("instance url %q is not an absolute url", config.Instance.URL)
	}

	if config.Listing.PageSize <= 0 {
		return fmt.Errorf("listing page_size must be positive")
	}

	if config.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if config.HTTP.Retry.MaxRetries < 0 {
		return fmt.Errorf("http retry max_retries must not be negative")
	}

	if config.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}

	return nil
}
