package config

import (
	"fmt"
	"time"

	"github.com/turtacn/statusservice/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	LogStore   LogStoreConfig   `mapstructure:"log_store"`
	LogSink    LogSinkConfig    `mapstructure:"log_sink"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps how much of a request body the pipeline buffers.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects where the ban map, the counter and overflow files live.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	DataDir     string `mapstructure:"data_dir"`
	OverflowDir string `mapstructure:"overflow_dir"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type RedisConfig struct {
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// LogStoreConfig configures the SQL request log store.
type LogStoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LogSinkConfig struct {
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// KafkaConfig configures the optional request log mirror.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	RequiredAcks int           `mapstructure:"required_acks"`
	BatchSize    int           `mapstructure:"batch_size"`
	QueueSize    int           `mapstructure:"queue_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// AdminConfig protects the admin endpoints when JWTSecret is set.
type AdminConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

type MonitoringConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	PprofEnabled   bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes < constants.OverflowThreshold {
		return fmt.Errorf("server.max_body_bytes must be at least %d", constants.OverflowThreshold)
	}
	switch constants.StorageBackend(c.Storage.Backend) {
	case constants.StorageBackendFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the file backend")
		}
	case constants.StorageBackendRedis:
		if len(c.Redis.Addresses) == 0 {
			return fmt.Errorf("redis.addresses is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.OverflowDir == "" {
		return fmt.Errorf("storage.overflow_dir is required")
	}
	switch constants.LogStoreDriver(c.LogStore.Driver) {
	case constants.LogStoreDriverSQLite, constants.LogStoreDriverPostgres:
	default:
		return fmt.Errorf("unknown log_store.driver %q", c.LogStore.Driver)
	}
	if c.LogStore.DSN == "" {
		return fmt.Errorf("log_store.dsn is required")
	}
	if c.LogSink.ShutdownGrace <= 0 {
		return fmt.Errorf("log_sink.shutdown_grace must be positive")
	}
	if c.RateLimit.JanitorInterval <= 0 {
		return fmt.Errorf("rate_limit.janitor_interval must be positive")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}
