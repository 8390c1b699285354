package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/enterprise/corebench/internal/benchmark"
	"github.com/enterprise/corebench/internal/components"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Cache     CacheConfig      `mapstructure:"cache"`
	Events    EventsConfig     `mapstructure:"events"`
	Benchmark benchmark.Config `mapstructure:"benchmark"`
	LoadTest  LoadTestConfig   `mapstructure:"load_test"`
	Chaos     ChaosConfig      `mapstructure:"chaos"`
	Reports   ReportsConfig    `mapstructure:"reports"`
	Monitor   MonitorConfig    `mapstructure:"monitor"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CacheConfig selects the cache backend the harness benchmarks. Backend is
// "memory" or "redis".
type CacheConfig struct {
	Backend string                      `mapstructure:"backend"`
	Redis   components.RedisCacheConfig `mapstructure:"redis"`
}

type EventsConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	NATS    NATSConfig  `mapstructure:"nats"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoadTestConfig struct {
	TotalRequests int           `mapstructure:"total_requests"`
	Concurrency   int           `mapstructure:"concurrency"`
	BatchDelay    time.Duration `mapstructure:"batch_delay"`
}

type ChaosConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxConnections int           `mapstructure:"max_connections"`
}

type ReportsConfig struct {
	Directory string `mapstructure:"directory"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level        string `mapstructure:"level"`
	Format       string `mapstructure:"format"`
	Output       string `mapstructure:"output"`
	FileRotation bool   `mapstructure:"file_rotation"`
	MaxSize      int    `mapstructure:"max_size"`
	MaxBackups   int    `mapstructure:"max_backups"`
	MaxAge       int    `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads the configuration from a file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Default returns the configuration with every default applied, without
// reading a file.
func Default() *Config {
	setDefaults()
	var config Config
	// Unmarshal cannot fail on defaults alone.
	_ = viper.Unmarshal(&config)
	return &config
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.Backend == "redis" && c.Cache.Redis.Address == "" {
		return fmt.Errorf("redis address is required for the redis cache backend")
	}

	if c.LoadTest.TotalRequests <= 0 {
		return fmt.Errorf("load test total requests must be positive")
	}

	if c.LoadTest.Concurrency <= 0 {
		return fmt.Errorf("load test concurrency must be positive")
	}

	if c.Chaos.PollInterval <= 0 {
		return fmt.Errorf("chaos poll interval must be positive")
	}

	if c.Events.Enabled && !c.Events.NATS.Enabled && !c.Events.Kafka.Enabled {
		return fmt.Errorf("events are enabled but no publisher is configured")
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Cache defaults
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis.address", "localhost:6379")
	viper.SetDefault("cache.redis.pool_size", 10)
	viper.SetDefault("cache.redis.max_retries", 3)
	viper.SetDefault("cache.redis.read_timeout", "3s")

	// Event publishing defaults
	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.nats.enabled", false)
	viper.SetDefault("events.nats.url", "nats://localhost:4222")
	viper.SetDefault("events.kafka.enabled", false)
	viper.SetDefault("events.kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("events.kafka.topic", "corebench.events")

	// Benchmark defaults
	viper.SetDefault("benchmark.cache.iterations", 10000)
	viper.SetDefault("benchmark.cache.warmup", 100)
	viper.SetDefault("benchmark.cache.concurrency", 50)
	viper.SetDefault("benchmark.rate_limit.iterations", 10000)
	viper.SetDefault("benchmark.rate_limit.warmup", 100)
	viper.SetDefault("benchmark.rate_limit.concurrency", 100)
	viper.SetDefault("benchmark.logging.iterations", 10000)
	viper.SetDefault("benchmark.logging.warmup", 100)
	viper.SetDefault("benchmark.logging.concurrency", 50)
	viper.SetDefault("benchmark.validation.iterations", 10000)
	viper.SetDefault("benchmark.validation.warmup", 100)
	viper.SetDefault("benchmark.integration.iterations", 5000)
	viper.SetDefault("benchmark.integration.warmup", 50)
	viper.SetDefault("benchmark.integration.concurrency", 25)

	// Load test defaults
	viper.SetDefault("load_test.total_requests", 1000)
	viper.SetDefault("load_test.concurrency", 50)
	viper.SetDefault("load_test.batch_delay", "10ms")

	// Chaos defaults
	viper.SetDefault("chaos.poll_interval", "100ms")
	viper.SetDefault("chaos.max_connections", 1000)

	// Report defaults
	viper.SetDefault("reports.directory", "")

	// Monitoring defaults
	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", "1s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.file_rotation", false)
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
