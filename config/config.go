package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/net/http/httpguts"
)

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

// CSRFConfig holds the names the token travels under and its lifetime
type CSRFConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MetaName   string `mapstructure:"meta_name" validate:"required"`
	HeaderName string `mapstructure:"header_name" validate:"required"`
	FieldName  string `mapstructure:"field_name" validate:"required"`
	CookieName string `mapstructure:"cookie_name" validate:"required"`
	// TokenTTL is how long an issued token stays valid (default: 24h)
	TokenTTL     time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	TokenBytes   int           `mapstructure:"token_bytes" validate:"min=16,max=64"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

// RedisConfig holds connection settings for the redis token store
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"min=0"`
	PoolSize  int    `mapstructure:"pool_size" validate:"min=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// StoreConfig selects and configures the token store
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory redis"`
	Memory  struct {
		Size int `mapstructure:"size" validate:"min=1"`
	} `mapstructure:"memory"`
	Redis RedisConfig `mapstructure:"redis"`
}

// Config holds all configuration for warden
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	CSRF   CSRFConfig   `mapstructure:"csrf"`
	Store  StoreConfig  `mapstructure:"store"`

	Pages struct {
		// Dir holds the .html pages served under /pages/ (empty: built-in index only)
		Dir string `mapstructure:"dir"`
	} `mapstructure:"pages"`

	RateLimit struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
		Burst             int     `mapstructure:"burst" validate:"gte=0"`
	} `mapstructure:"rate_limit"`

	Logging struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=console json"`
	} `mapstructure:"logging"`

	// ConfigFile is the file the configuration was read from, empty if none
	ConfigFile string `mapstructure:"-"`
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("csrf.enabled", true)
	v.SetDefault("csrf.meta_name", "csrf-token")
	v.SetDefault("csrf.header_name", "X-CSRF-Token")
	v.SetDefault("csrf.field_name", "csrf_token")
	v.SetDefault("csrf.cookie_name", "warden_session")
	v.SetDefault("csrf.token_ttl", 24*time.Hour)
	v.SetDefault("csrf.token_bytes", 32)
	v.SetDefault("csrf.cookie_secure", false)

	v.SetDefault("store.backend", StoreBackendMemory)
	v.SetDefault("store.memory.size", 10000)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.key_prefix", "warden:csrf:")

	v.SetDefault("pages.dir", "")

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadConfig loads configuration from defaults, an optional config file and WARDEN_*
// environment variables. With an empty configFile, config.yaml is looked up in . and
// ./config and silently skipped when absent.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration for security and correctness
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !httpguts.ValidHeaderFieldName(config.CSRF.HeaderName) {
		return fmt.Errorf("invalid config: csrf.header_name %q is not a valid HTTP header name", config.CSRF.HeaderName)
	}
	if strings.ContainsAny(config.CSRF.FieldName, " \t\r\n\"'<>") {
		return fmt.Errorf("invalid config: csrf.field_name %q contains forbidden characters", config.CSRF.FieldName)
	}

	if config.Store.Backend == StoreBackendRedis && config.Store.Redis.Addr == "" {
		return fmt.Errorf("invalid config: store.redis.addr is required when store.backend is redis")
	}

	if config.RateLimit.RequestsPerSecond > 0 && config.RateLimit.Burst == 0 {
		return fmt.Errorf("invalid config: rate_limit.burst must be positive when rate limiting is enabled")
	}

	return nil
}
