package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"PricePulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port             int           `yaml:"port"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
		WSAllowedOrigins []string      `yaml:"ws_allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Postgres struct {
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		Database       string        `yaml:"database"`
		User           string        `yaml:"user"`
		Password       string        `yaml:"password"`
		SSLMode        string        `yaml:"ssl_mode"`
		MaxOpenConns   int           `yaml:"max_open_conns"`
		MaxIdleConns   int           `yaml:"max_idle_conns"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
		MigrationsPath string        `yaml:"migrations_path"`
	} `yaml:"postgres"`
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
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		AlertsTopic      string   `yaml:"alerts_topic"`
		PredictionsTopic string   `yaml:"predictions_topic"`
		LogsTopic        string   `yaml:"logs_topic"`
		IngestTopic      string   `yaml:"ingest_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
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
	Search struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Engine      string        `yaml:"engine"`
		Domain      string        `yaml:"domain"`
		Language    string        `yaml:"language"`
		Timeout     time.Duration `yaml:"timeout"`
		RetryMax    int           `yaml:"retry_max"`
		MinInterval time.Duration `yaml:"min_interval"`
	} `yaml:"search"`
	Notifications struct {
		Cooldown time.Duration `yaml:"cooldown"`
		Workers  int           `yaml:"workers"`
		Slack    struct {
			Enabled    bool   `yaml:"enabled"`
			WebhookURL string `yaml:"webhook_url"`
			Channel    string `yaml:"channel"`
			Username   string `yaml:"username"`
		} `yaml:"slack"`
		Email struct {
			Enabled  bool     `yaml:"enabled"`
			SMTPHost string   `yaml:"smtp_host"`
			SMTPPort int      `yaml:"smtp_port"`
			Username string   `yaml:"username"`
			Password string   `yaml:"password"`
			From     string   `yaml:"from"`
			To       []string `yaml:"to"`
		} `yaml:"email"`
	} `yaml:"notifications"`
	Monitor struct {
		Enabled            bool          `yaml:"enabled"`
		DefaultInterval    string        `yaml:"default_interval"`
		PriceDropThreshold float64       `yaml:"price_drop_threshold"` // percent vs previous observation
		DealThreshold      float64       `yaml:"deal_threshold"`       // discount percent
		CheckTimeout       time.Duration `yaml:"check_timeout"`
		MaxConcurrent      int           `yaml:"max_concurrent"`
	} `yaml:"monitor"`
	Engine struct {
		MinDataPoints int           `yaml:"min_data_points"`
		ModelDir      string        `yaml:"model_dir"`
		ModelMaxAge   time.Duration `yaml:"model_max_age"`
		Horizons      []int         `yaml:"horizons"`
		LookbackDays  int           `yaml:"lookback_days"`
		ArtifactStore string        `yaml:"artifact_store"` // fs or redis
		AnalysisTTL   time.Duration `yaml:"analysis_cache_ttl"`
	} `yaml:"engine"`
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

	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	c.Redis.Port = util.ParseIntDefault(os.Getenv("REDIS_PORT"), c.Redis.Port)
	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	c.Monitor.PriceDropThreshold = util.ParseFloatDefault(os.Getenv("PRICE_DROP_THRESHOLD"), c.Monitor.PriceDropThreshold)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_ALLOWED_ORIGINS"); v != "" {
		c.Server.WSAllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Notifications.Slack.WebhookURL = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notifications.Email.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Engine.MinDataPoints <= 0 {
		return fmt.Errorf("engine.min_data_points must be positive")
	}
	if len(c.Engine.Horizons) == 0 {
		return fmt.Errorf("engine.horizons cannot be empty")
	}
	if c.Engine.ArtifactStore != "" && c.Engine.ArtifactStore != "fs" && c.Engine.ArtifactStore != "redis" {
		return fmt.Errorf("engine.artifact_store must be 'fs' or 'redis', got '%s'", c.Engine.ArtifactStore)
	}
	if c.Monitor.Enabled && c.Search.APIKey == "" {
		return fmt.Errorf("search.api_key is required when monitor is enabled")
	}
	return nil
}
