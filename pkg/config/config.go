package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source holds the orchestration knobs shared by every upstream adapter.
// Gap > 0 routes requests through the serialized rate-limited queue.
type Source struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	TTLSeconds      int    `yaml:"ttl_seconds" default:"60" validate:"gt=0"`
	CooldownSeconds int    `yaml:"cooldown_seconds" default:"120" validate:"gt=0"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" default:"15" validate:"gt=0"`
	GapMs           int    `yaml:"gap_ms" validate:"gte=0"`
}

// TTL returns the cache freshness window.
func (s Source) TTL() time.Duration { return time.Duration(s.TTLSeconds) * time.Second }

// Cooldown returns the backoff window entered after a classified failure.
func (s Source) Cooldown() time.Duration { return time.Duration(s.CooldownSeconds) * time.Second }

// Timeout returns the per-request timeout.
func (s Source) Timeout() time.Duration { return time.Duration(s.TimeoutSeconds) * time.Second }

// Gap returns the minimum spacing between queued dispatches.
func (s Source) Gap() time.Duration { return time.Duration(s.GapMs) * time.Millisecond }

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int `yaml:"port" default:"8080"`
		ReadTimeoutSec  int `yaml:"read_timeout_seconds" default:"10"`
		WriteTimeoutSec int `yaml:"write_timeout_seconds" default:"10"`
		ShutdownSec     int `yaml:"shutdown_timeout_seconds" default:"10"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Sources struct {
		Yahoo struct {
			Source  `yaml:",inline"`
			Symbols []string `yaml:"symbols"`
		} `yaml:"yahoo"`
		Coingecko struct {
			Source  `yaml:",inline"`
			PerPage int `yaml:"per_page" default:"50" validate:"gt=0,lte=250"`
		} `yaml:"coingecko"`
		FearGreed  Source `yaml:"feargreed"`
		Polymarket struct {
			Source `yaml:",inline"`
			Limit  int `yaml:"limit" default:"20" validate:"gt=0"`
		} `yaml:"polymarket"`
		RSS struct {
			Source `yaml:",inline"`
			Feeds  map[string]string `yaml:"feeds"`
		} `yaml:"rss"`
		GDELT struct {
			Source     `yaml:",inline"`
			MaxRecords int `yaml:"max_records" default:"75" validate:"gt=0,lte=250"`
		} `yaml:"gdelt"`
		Firms struct {
			Source   `yaml:",inline"`
			MapKey   string `yaml:"map_key"`
			DayRange int    `yaml:"day_range" default:"1" validate:"gt=0,lte=10"`
		} `yaml:"firms"`
		AIS   Source `yaml:"ais"`
		Circl struct {
			Source `yaml:",inline"`
			Limit  int `yaml:"limit" default:"30" validate:"gt=0"`
		} `yaml:"circl"`
		OpenSky struct {
			Source       `yaml:",inline"`
			TokenURL     string `yaml:"token_url"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
		} `yaml:"opensky"`
	} `yaml:"sources"`
	Collector struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds" default:"60" validate:"gt=0"`
	} `yaml:"collector"`
	Snapshot struct {
		// Backend selects where last-good payloads are mirrored for
		// cold-start stale serving: "memory", "redis" or "layered".
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"snapshot"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"warboard.snapshots"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Async        bool     `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" default:"9000"`
		Database string `yaml:"database" default:"warboard"`
		User     string `yaml:"user" default:"default"`
		Password string `yaml:"password"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

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

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.applyBaseURLs()

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

	if v := os.Getenv("WATCH_SYMBOLS"); v != "" {
		c.Sources.Yahoo.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("OPENSKY_CLIENT_ID"); v != "" {
		c.Sources.OpenSky.ClientID = v
	}
	if v := os.Getenv("OPENSKY_CLIENT_SECRET"); v != "" {
		c.Sources.OpenSky.ClientSecret = v
	}
	if v := os.Getenv("FIRMS_MAP_KEY"); v != "" {
		c.Sources.Firms.MapKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Snapshot.Redis.Addr = v
	}

	return c, nil
}

// ReadTimeout returns the HTTP server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the HTTP server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSec) * time.Second
}

// CollectorInterval returns the background refresh period.
func (c *Config) CollectorInterval() time.Duration {
	return time.Duration(c.Collector.IntervalSeconds) * time.Second
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required when clickhouse is enabled")
	}
	if c.Snapshot.Backend != "memory" && c.Snapshot.Redis.Addr == "" {
		return fmt.Errorf("snapshot.redis.addr required for backend %q", c.Snapshot.Backend)
	}
	return nil
}

// applyBaseURLs fills the production upstream endpoints where the config file
// leaves them unset. Tests point base_url at an httptest server instead; an
// adapter never carries environment-specific logic.
func (c *Config) applyBaseURLs() {
	set := func(target *string, url string) {
		if *target == "" {
			*target = url
		}
	}
	set(&c.Sources.Yahoo.BaseURL, "https://query2.finance.yahoo.com")
	set(&c.Sources.Coingecko.BaseURL, "https://api.coingecko.com")
	set(&c.Sources.FearGreed.BaseURL, "https://api.alternative.me")
	set(&c.Sources.Polymarket.BaseURL, "https://gamma-api.polymarket.com")
	set(&c.Sources.RSS.BaseURL, "https://api.rss2json.com")
	set(&c.Sources.GDELT.BaseURL, "https://api.gdeltproject.org")
	set(&c.Sources.Firms.BaseURL, "https://firms.modaps.eosdis.nasa.gov")
	set(&c.Sources.AIS.BaseURL, "https://meri.digitraffic.fi")
	set(&c.Sources.Circl.BaseURL, "https://cve.circl.lu")
	set(&c.Sources.OpenSky.BaseURL, "https://opensky-network.org")
	set(&c.Sources.OpenSky.TokenURL, "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token")
}
