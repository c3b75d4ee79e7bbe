package config

import (
	"fmt"
	"os"
	"strings"
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
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	CRM struct {
		BaseURL        string        `yaml:"base_url"`
		Token          string        `yaml:"token"`
		WebSocketURL   string        `yaml:"websocket_url"`
		AccountIDs     []string      `yaml:"account_ids"`
		Timeout        time.Duration `yaml:"timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RateCapacity   float64       `yaml:"rate_capacity"`
		RateRefill     float64       `yaml:"rate_refill"`
	} `yaml:"crm"`
	Analysis struct {
		// Source selects where report orders come from: "crm" pulls
		// through the REST API, "storage" replays the persisted stream.
		Source      string   `yaml:"source"`
		LumpPrefix  string   `yaml:"lump_prefix"`
		IgnoreTerms []string `yaml:"ignore_terms"`
		Resolution  string   `yaml:"resolution"`
		WindowDays  int      `yaml:"window_days"`
		WarmupDays  int      `yaml:"warmup_days"`
		MALength    int      `yaml:"ma_length"`
		ReportTopic string   `yaml:"report_topic"`
		CacheTTL    struct {
			Report  time.Duration `yaml:"report"`
			Candles time.Duration `yaml:"candles"`
		} `yaml:"cache_ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"analysis"`
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

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("CRM_TOKEN"); v != "" {
		c.CRM.Token = v
	}
	if v := os.Getenv("CRM_BASE_URL"); v != "" {
		c.CRM.BaseURL = v
	}
	if v := os.Getenv("ACCOUNT_IDS"); v != "" {
		c.CRM.AccountIDs = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.CRM.AccountIDs) == 0 {
		return fmt.Errorf("crm.account_ids cannot be empty")
	}
	if c.CRM.Token == "" {
		return fmt.Errorf("crm.token is required")
	}
	if c.Analysis.WindowDays < 0 || c.Analysis.WarmupDays < 0 {
		return fmt.Errorf("analysis window_days and warmup_days must be non-negative")
	}
	if s := c.Analysis.Source; s != "" && s != "crm" && s != "storage" {
		return fmt.Errorf("analysis.source must be 'crm' or 'storage', got '%s'", s)
	}
	return nil
}

// Normalized fills analysis defaults that YAML may leave unset.
func (c *Config) Normalized() *Config {
	if c.Analysis.Source == "" {
		c.Analysis.Source = "crm"
	}
	if c.Analysis.Resolution == "" {
		c.Analysis.Resolution = "3D"
	}
	if c.Analysis.WindowDays == 0 {
		c.Analysis.WindowDays = 90
	}
	if c.Analysis.WarmupDays == 0 {
		c.Analysis.WarmupDays = 180
	}
	if c.Analysis.MALength == 0 {
		c.Analysis.MALength = 18
	}
	return c
}
