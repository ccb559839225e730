package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Draft store backends
const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
	DraftStoreSQL    = "sql"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Commerce   CommerceConfig
	Validation ValidationConfig
	Bulk       BulkConfig
	Draft      DraftConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
	CORSOrigins     []string
}

// CommerceConfig holds the commerce platform client settings
type CommerceConfig struct {
	BaseURL      string
	APIToken     string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	CacheSize    int
	CacheTTL     time.Duration
}

// ValidationConfig holds batch validation settings
type ValidationConfig struct {
	MaxConcurrency int // 0 means unbounded
}

// BulkConfig limits quick-order uploads
type BulkConfig struct {
	MaxRows     int
	MaxErrors   int
	MaxQuantity int
}

// DraftConfig selects and tunes the quote draft store
type DraftConfig struct {
	Store      string // memory, redis, sql
	KeyPrefix  string
	TTL        time.Duration
	MaxRetries int
	RetryBase  time.Duration
	// PurgeInterval is how often the sql store deletes drafts idle for TTL
	PurgeInterval time.Duration
	// IdempotencyTTL is how long an Idempotency-Key is remembered
	IdempotencyTTL time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	SQLitePath      string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// JWTConfig holds the storefront session token settings
type JWTConfig struct {
	Secret   string
	Issuer   string
	Required bool // reject requests without a token
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with B2B_ prefix (e.g., B2B_COMMERCE_API_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file; a missing file is OK, defaults and env vars apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Enable environment variable override
	v.SetEnvPrefix("B2B")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
		},
		Commerce: CommerceConfig{
			BaseURL:      v.GetString("commerce.base_url"),
			APIToken:     v.GetString("commerce.api_token"),
			Timeout:      v.GetDuration("commerce.timeout"),
			RetryCount:   v.GetInt("commerce.retry_count"),
			RetryWait:    v.GetDuration("commerce.retry_wait"),
			RetryMaxWait: v.GetDuration("commerce.retry_max_wait"),
			CacheSize:    v.GetInt("commerce.cache_size"),
			CacheTTL:     v.GetDuration("commerce.cache_ttl"),
		},
		Validation: ValidationConfig{
			MaxConcurrency: v.GetInt("validation.max_concurrency"),
		},
		Bulk: BulkConfig{
			MaxRows:     v.GetInt("bulk.max_rows"),
			MaxErrors:   v.GetInt("bulk.max_errors"),
			MaxQuantity: v.GetInt("bulk.max_quantity"),
		},
		Draft: DraftConfig{
			Store:      v.GetString("draft.store"),
			KeyPrefix:  v.GetString("draft.key_prefix"),
			TTL:        v.GetDuration("draft.ttl"),
			MaxRetries: v.GetInt("draft.max_retries"),
			RetryBase:  v.GetDuration("draft.retry_base"),

			PurgeInterval:  v.GetDuration("draft.purge_interval"),
			IdempotencyTTL: v.GetDuration("draft.idempotency_ttl"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Required: v.GetBool("jwt.required"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "b2b-quote"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	// HTTP server defaults
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20
	}
	// Commerce client defaults
	if cfg.Commerce.Timeout == 0 {
		cfg.Commerce.Timeout = 10 * time.Second
	}
	if cfg.Commerce.RetryWait == 0 {
		cfg.Commerce.RetryWait = 100 * time.Millisecond
	}
	if cfg.Commerce.RetryMaxWait == 0 {
		cfg.Commerce.RetryMaxWait = 2 * time.Second
	}
	if cfg.Commerce.CacheTTL == 0 {
		cfg.Commerce.CacheTTL = 5 * time.Minute
	}
	if cfg.Bulk.MaxRows == 0 {
		cfg.Bulk.MaxRows = 500
	}
	if cfg.Bulk.MaxErrors == 0 {
		cfg.Bulk.MaxErrors = 100
	}
	// Draft store defaults
	if cfg.Draft.Store == "" {
		cfg.Draft.Store = DraftStoreMemory
	}
	if cfg.Draft.KeyPrefix == "" {
		cfg.Draft.KeyPrefix = "b2b:quote-draft:"
	}
	if cfg.Draft.TTL == 0 {
		cfg.Draft.TTL = 30 * 24 * time.Hour
	}
	if cfg.Draft.MaxRetries == 0 {
		cfg.Draft.MaxRetries = 10
	}
	if cfg.Draft.RetryBase == 0 {
		cfg.Draft.RetryBase = 5 * time.Millisecond
	}
	if cfg.Draft.PurgeInterval == 0 {
		cfg.Draft.PurgeInterval = time.Hour
	}
	if cfg.Draft.IdempotencyTTL == 0 {
		cfg.Draft.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "b2b-quote.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "b2b_quote"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "b2b-buyer-portal"
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate commerce client settings
	if c.Commerce.BaseURL != "" {
		u, err := url.Parse(c.Commerce.BaseURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("commerce.base_url must be an absolute http(s) URL, got %q", c.Commerce.BaseURL)
		}
	}
	if c.Commerce.RetryCount < 0 {
		return fmt.Errorf("commerce.retry_count cannot be negative")
	}
	if c.Validation.MaxConcurrency < 0 {
		return fmt.Errorf("validation.max_concurrency cannot be negative")
	}

	// Validate draft store settings
	switch c.Draft.Store {
	case DraftStoreMemory, DraftStoreRedis, DraftStoreSQL:
	default:
		return fmt.Errorf("draft.store must be one of memory, redis, sql, got %q", c.Draft.Store)
	}
	if c.Draft.MaxRetries < 0 {
		return fmt.Errorf("draft.max_retries cannot be negative")
	}
	if c.Draft.PurgeInterval < 0 {
		return fmt.Errorf("draft.purge_interval cannot be negative")
	}

	// Validate connection pool settings
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Commerce.BaseURL == "" {
			return fmt.Errorf("commerce.base_url is required in production")
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Draft.Store == DraftStoreMemory {
			return fmt.Errorf("draft.store cannot be memory in production")
		}
		if c.Draft.Store == DraftStoreSQL && c.Database.Driver == DriverPostgres && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
