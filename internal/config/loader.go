package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/turtacn/statusservice/pkg/constants"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

// EnvPrefix is the prefix of every environment override, e.g. STATUSSERVICE_SERVER_PORT.
const EnvPrefix = "STATUSSERVICE"

// Loader reads the configuration from file, .env and environment variables.
type Loader struct {
	v   *viper.Viper
	log logger.Logger
}

// NewLoader creates a loader. configFile may be empty, in which case
// config.yaml is searched in /etc/statusservice/ and the working directory.
func NewLoader(configFile string, log logger.Logger) *Loader {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/statusservice/")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, log: log}
}

// LoadConfig is a shorthand for NewLoader("", log).Load().
func LoadConfig(log logger.Logger) (*Config, error) {
	return NewLoader("", log).Load()
}

// Load reads .env (if present), the config file (if present) and the environment.
func (l *Loader) Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.log.Warn(context.Background(), "failed to read .env file", logger.Error(err))
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, svcerrors.Wrap(err, svcerrors.ErrCodeInvalidRequest, "failed to read config file")
		}
		l.log.Info(context.Background(), "no config file found, using defaults and environment")
	} else {
		l.log.Info(context.Background(), "config file loaded", logger.String("file", l.v.ConfigFileUsed()))
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, svcerrors.Wrap(err, svcerrors.ErrCodeInternal, "failed to unmarshal config")
	}
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, svcerrors.Wrap(err, svcerrors.ErrCodeInvalidRequest, "invalid config")
	}
	return &cfg, nil
}

// WatchLogLevel calls fn with the new log.level each time the config file changes.
// It is a no-op when no config file was found.
func (l *Loader) WatchLogLevel(fn func(level constants.LogLevel)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := constants.LogLevel(strings.ToLower(l.v.GetString("log.level")))
		l.log.Info(context.Background(), "config file changed", logger.String("file", e.Name), logger.String("log_level", string(level)))
		fn(level)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 16<<20)

	v.SetDefault("storage.backend", string(constants.StorageBackendFile))
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.overflow_dir", "")
	v.SetDefault("storage.redis_prefix", "statusservice:")

	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("log_store.driver", string(constants.LogStoreDriverSQLite))
	v.SetDefault("log_store.dsn", "")
	v.SetDefault("log_store.max_open_conns", 4)
	v.SetDefault("log_store.max_idle_conns", 2)
	v.SetDefault("log_store.conn_max_lifetime", time.Hour)

	v.SetDefault("log_sink.shutdown_grace", constants.DefaultShutdownGrace)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "statusservice.request-logs")
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.queue_size", 10000)
	v.SetDefault("kafka.batch_timeout", time.Second)
	v.SetDefault("kafka.write_timeout", 10*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.janitor_interval", time.Minute)

	v.SetDefault("admin.jwt_secret", "")

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.pprof_enabled", false)
}

// fillDerived computes paths that default relative to the data dir.
func (c *Config) fillDerived() {
	if c.Storage.OverflowDir == "" {
		c.Storage.OverflowDir = filepath.Join(c.Storage.DataDir, constants.OverflowDirName)
	}
	if c.LogStore.DSN == "" && constants.LogStoreDriver(c.LogStore.Driver) == constants.LogStoreDriverSQLite {
		c.LogStore.DSN = filepath.Join(c.Storage.DataDir, constants.LogDatabaseFile)
	}
}
