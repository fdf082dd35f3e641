// Package config loads the server configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mako/domain/dex"
)

// Market configures one trading pair: its assets (string form, "MAKO" or a
// base64 asset id) and admission restrictions.
type Market struct {
	AmountAsset string `yaml:"amountAsset"`
	PriceAsset  string `yaml:"priceAsset"`

	StepAmount uint64 `yaml:"stepAmount"`
	MinAmount  uint64 `yaml:"minAmount"`
	MaxAmount  uint64 `yaml:"maxAmount"`
	StepPrice  uint64 `yaml:"stepPrice"`
	MinPrice   uint64 `yaml:"minPrice"`
	MaxPrice   uint64 `yaml:"maxPrice"`
}

// Pair resolves the market's asset pair.
func (m Market) Pair() (dex.AssetPair, error) {
	amount, err := dex.ParseAsset(m.AmountAsset)
	if err != nil {
		return dex.AssetPair{}, err
	}
	price, err := dex.ParseAsset(m.PriceAsset)
	if err != nil {
		return dex.AssetPair{}, err
	}
	pair := dex.AssetPair{AmountAsset: amount, PriceAsset: price}
	if !pair.Valid() {
		return dex.AssetPair{}, fmt.Errorf("market %s/%s: identical assets", m.AmountAsset, m.PriceAsset)
	}
	return pair, nil
}

// Restrictions returns the market's order restrictions.
func (m Market) Restrictions() dex.OrderRestrictions {
	return dex.OrderRestrictions{
		StepAmount: m.StepAmount,
		MinAmount:  m.MinAmount,
		MaxAmount:  m.MaxAmount,
		StepPrice:  m.StepPrice,
		MinPrice:   m.MinPrice,
		MaxPrice:   m.MaxPrice,
	}
}

// Config is the full server configuration.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		CommandTopic string   `yaml:"commandTopic"`
		Partition    int      `yaml:"partition"`
		EventTopic   string   `yaml:"eventTopic"`
	} `yaml:"kafka"`

	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`

	Engine struct {
		SnapshotEvery    int           `yaml:"snapshotEvery"`
		SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	} `yaml:"engine"`

	Oracle struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"oracle"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Markets []Market `yaml:"markets"`
}

// Default returns the configuration used when a field is left unset.
func Default() Config {
	var c Config
	c.HTTP.Addr = ":8080"
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.CommandTopic = "mako.commands"
	c.Kafka.EventTopic = "mako.events"
	c.Store.Dir = "data"
	c.Engine.SnapshotEvery = 512
	c.Engine.SnapshotInterval = 30 * time.Second
	c.Oracle.Timeout = 5 * time.Second
	c.Logging.Level = "info"
	return c
}

// Load reads path (optional; empty means defaults only), then applies
// environment overrides:
//
//	MAKO_HTTP_ADDR, MAKO_KAFKA_BROKERS (comma separated),
//	MAKO_STORE_DIR, MAKO_ORACLE_URL, MAKO_LOG_LEVEL
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("MAKO_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("MAKO_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MAKO_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("MAKO_ORACLE_URL"); v != "" {
		c.Oracle.URL = v
	}
	if v := os.Getenv("MAKO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	if c.Kafka.CommandTopic == "" {
		return fmt.Errorf("no command topic configured")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("no store directory configured")
	}
	for _, m := range c.Markets {
		if _, err := m.Pair(); err != nil {
			return err
		}
	}
	return nil
}

// RestrictionsByPair indexes the configured markets by canonical pair key.
func (c *Config) RestrictionsByPair() (map[string]dex.OrderRestrictions, error) {
	out := make(map[string]dex.OrderRestrictions, len(c.Markets))
	for _, m := range c.Markets {
		pair, err := m.Pair()
		if err != nil {
			return nil, err
		}
		out[pair.Key()] = m.Restrictions()
	}
	return out, nil
}
