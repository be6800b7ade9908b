package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medtracker/internal/middleware"
	"github.com/jwalitptl/medtracker/internal/notify"
	"github.com/jwalitptl/medtracker/internal/repository/postgres"
	"github.com/jwalitptl/medtracker/internal/router"
	"github.com/jwalitptl/medtracker/pkg/logger"
	"github.com/jwalitptl/medtracker/pkg/messaging/redis"
	"github.com/jwalitptl/medtracker/pkg/security"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
	Compress       bool          `mapstructure:"compress"`
}

type StoreConfig struct {
	Backend   string        `mapstructure:"backend"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	// EncryptionKey is a base64 32-byte key; when set documents are sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type ExtractionConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	HSTS           bool     `mapstructure:"hsts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type RolloverConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`
}

type WorkerConfig struct {
	// Permission stands in for the notification permission a user would grant.
	Permission  string         `mapstructure:"permission"`
	Notifiers   []string       `mapstructure:"notifiers"`
	Email       EmailConfig    `mapstructure:"email"`
	Rollover    RolloverConfig `mapstructure:"rollover"`
	MetricsPort int            `mapstructure:"metrics_port"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Security   SecurityConfig   `mapstructure:"security"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 45*time.Second)
	v.SetDefault("server.max_body_size", 5<<20)
	v.SetDefault("server.max_upload_size", 10<<20)
	v.SetDefault("server.compress", true)

	v.SetDefault("store.backend", BackendRedis)
	v.SetDefault("store.key_prefix", "medtracker:doc:")
	v.SetDefault("store.cache_ttl", time.Duration(0))
	v.SetDefault("store.encryption_key", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.model", "gemini-2.5-flash")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.hsts", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "medtracker")

	v.SetDefault("worker.permission", "granted")
	v.SetDefault("worker.notifiers", []string{"log"})
	v.SetDefault("worker.metrics_port", 9090)
	v.SetDefault("worker.email.host", "")
	v.SetDefault("worker.email.port", 587)
	v.SetDefault("worker.email.username", "")
	v.SetDefault("worker.email.password", "")
	v.SetDefault("worker.email.from", "")
	v.SetDefault("worker.email.to", []string{})
	v.SetDefault("worker.rollover.enabled", false)
	v.SetDefault("worker.rollover.schedule", "0 0 * * *")
	v.SetDefault("worker.rollover.timezone", "UTC")
}

// LoadConfig reads path, or config.yml from the usual locations when path is empty, and
// applies MEDTRACKER_* environment overrides plus the conventional REDIS_URL,
// DATABASE_URL, GEMINI_API_KEY/API_KEY and PORT variables. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app")        // container root directory
		v.AddConfigPath("/app/config") // container config directory
	}

	v.SetEnvPrefix("MEDTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"redis.url":          {"MEDTRACKER_REDIS_URL", "REDIS_URL", "KV_URL"},
		"database.url":       {"MEDTRACKER_DATABASE_URL", "DATABASE_URL"},
		"extraction.api_key": {"MEDTRACKER_EXTRACTION_API_KEY", "GEMINI_API_KEY", "API_KEY"},
		"server.port":        {"MEDTRACKER_SERVER_PORT", "PORT"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks settings that would otherwise fail late. Missing store credentials are
// deliberately not checked here: the API reports them per request.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := security.ParseKey(c.Store.EncryptionKey); err != nil {
			return err
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if _, err := time.LoadLocation(c.Worker.Rollover.Timezone); err != nil {
		return fmt.Errorf("invalid rollover timezone: %w", err)
	}
	return nil
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *DatabaseConfig) ToPostgresConfig() postgres.Config {
	return postgres.Config{
		URL:             c.URL,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func (c *EmailConfig) ToNotifierConfig() notify.EmailConfig {
	return notify.EmailConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		To:       c.To,
	}
}

func (c *LogConfig) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Level,
		Format: c.Format,
	}
}

func (c *Config) ToRouterConfig() router.RouterConfig {
	rc := router.DefaultRouterConfig()
	rc.RateLimitEnabled = c.RateLimit.Enabled
	rc.RateLimit = rate.Limit(c.RateLimit.RequestsPerSecond)
	rc.RateBurst = c.RateLimit.Burst
	rc.CORSConfig.AllowOrigins = c.Security.AllowedOrigins
	rc.Security.HSTS = c.Security.HSTS
	rc.RequestTimeout = c.Server.RequestTimeout
	rc.SizeLimit = middleware.SizeLimitConfig{
		MaxBodySize:   c.Server.MaxBodySize,
		MaxUploadSize: c.Server.MaxUploadSize,
		MaxHeaderSize: rc.SizeLimit.MaxHeaderSize,
		ErrorMessage:  rc.SizeLimit.ErrorMessage,
	}
	if !c.Server.Compress {
		rc.Compress = nil
	}
	return rc
}
