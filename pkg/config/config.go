package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Coinbase struct {
		BaseURL   string        `yaml:"base_url"`
		ProductID string        `yaml:"product_id"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"coinbase"`
	ECB struct {
		BaseURL string        `yaml:"base_url"`
		Flow    string        `yaml:"flow"`
		Pivot   string        `yaml:"pivot"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"ecb"`
	Cache struct {
		MetadataTTL        time.Duration `yaml:"metadata_ttl"`
		SpotResponseTTL    time.Duration `yaml:"spot_response_ttl"`
		CandlesResponseTTL time.Duration `yaml:"candles_response_ttl"`
		Redis              struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Scheduler struct {
		Enabled         bool   `yaml:"enabled"`
		MetadataRefresh string `yaml:"metadata_refresh"`
		SpotPrewarm     string `yaml:"spot_prewarm"`
	} `yaml:"scheduler"`
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

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("COINBASE_BASE_URL"); v != "" {
		c.Coinbase.BaseURL = v
	}
	if v := os.Getenv("ECB_BASE_URL"); v != "" {
		c.ECB.BaseURL = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Coinbase.Timeout == 0 {
		c.Coinbase.Timeout = 10 * time.Second
	}
	if c.Coinbase.ProductID == "" {
		c.Coinbase.ProductID = "BTC-USD"
	}
	if c.ECB.Timeout == 0 {
		c.ECB.Timeout = 10 * time.Second
	}
	if c.ECB.Flow == "" {
		c.ECB.Flow = "EXR"
	}
	if c.ECB.Pivot == "" {
		c.ECB.Pivot = "EUR"
	}
	if c.Cache.MetadataTTL == 0 {
		c.Cache.MetadataTTL = 24 * time.Hour
	}
	if c.Cache.SpotResponseTTL == 0 {
		c.Cache.SpotResponseTTL = 15 * time.Second
	}
	if c.Cache.CandlesResponseTTL == 0 {
		c.Cache.CandlesResponseTTL = time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Coinbase.BaseURL == "" {
		return fmt.Errorf("coinbase.base_url is required")
	}
	if c.ECB.BaseURL == "" {
		return fmt.Errorf("ecb.base_url is required")
	}
	if len(c.ECB.Pivot) != 3 {
		return fmt.Errorf("ecb.pivot must be a 3-letter currency code, got %q", c.ECB.Pivot)
	}
	return nil
}
