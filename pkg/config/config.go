package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"StockPull/pkg/kafka"
	"StockPull/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       float64       `yaml:"rate_limit" default:"20" validate:"gte=0"` // per client IP, per second
		RateBurst       int           `yaml:"rate_burst" default:"40" validate:"gte=0"`
	} `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	KIS struct {
		BaseURL           string        `yaml:"base_url" default:"https://openapi.koreainvestment.com:9443" validate:"required,url"`
		AppKey            string        `yaml:"app_key"`
		AppSecret         string        `yaml:"app_secret"`
		RequestTimeout    time.Duration `yaml:"request_timeout" default:"12s" validate:"gt=0"`
		PaceDelay         time.Duration `yaml:"pace_delay" default:"50ms" validate:"gte=0"`
		RateLimit         float64       `yaml:"rate_limit" default:"15" validate:"gte=0"`
		TokenRetryBackoff time.Duration `yaml:"token_retry_backoff" default:"300ms" validate:"gte=0"`
		BarLookbackDays   int           `yaml:"bar_lookback_days" default:"100" validate:"gte=60"`
	} `yaml:"kis"`
	Enrich struct {
		Workers          int           `yaml:"workers" default:"2" validate:"gte=1,lte=16"`
		QuoteTTL         time.Duration `yaml:"quote_ttl" default:"20s" validate:"gt=0"`
		FundamentalsTTL  time.Duration `yaml:"fundamentals_ttl" default:"24h" validate:"gt=0"`
		MaxCandidates    int           `yaml:"max_candidates" default:"12" validate:"gte=1"`
		ForeignExchanges []string      `yaml:"foreign_exchanges"`
	} `yaml:"enrich"`
	Universe struct {
		Dir             string `yaml:"dir" default:"data/universe"`
		DomesticTickers string `yaml:"domestic_tickers" default:"kr_tickers.json"`
		ForeignTickers  string `yaml:"foreign_tickers" default:"us_tickers.json"`
		DomesticNames   string `yaml:"domestic_names" default:"kr_name_map.json"`
		ForeignExchange string `yaml:"foreign_exchange" default:"us_exchange_map.json"`
	} `yaml:"universe"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Prefix   string `yaml:"prefix" default:"stockpull"`
		PoolSize int    `yaml:"pool_size" default:"10" validate:"gte=1"`
	} `yaml:"redis"`
	Kafka kafka.Config `yaml:"kafka"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Keys absent from the file
// keep their defaults. An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("KIS_APP_KEY"); ok {
		c.KIS.AppKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("KIS_APP_SECRET"); ok {
		c.KIS.AppSecret = strings.TrimSpace(v)
	}
	if v, ok := lookup("KIS_BASE_URL"); ok && v != "" {
		c.KIS.BaseURL = v
	}
	if v, ok := lookup("UNIVERSE_DIR"); ok && v != "" {
		c.Universe.Dir = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := lookup("ENRICH_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ENRICH_WORKERS: %w", err)
		}
		c.Enrich.Workers = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.BackoffMax < c.Kafka.BackoffMin {
		return fmt.Errorf("kafka.backoff_max (%s) must not be below kafka.backoff_min (%s)", c.Kafka.BackoffMax, c.Kafka.BackoffMin)
	}
	return nil
}

// Credentialed reports whether both quote service credentials are present.
func (c *Config) Credentialed() bool {
	return c.KIS.AppKey != "" && c.KIS.AppSecret != ""
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
