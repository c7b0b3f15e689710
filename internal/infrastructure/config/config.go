package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	Feed           FeedConfig
	Attribution    AttributionConfig
	Reconciliation ReconciliationConfig
	Assembly       AssemblyConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// FeedConfig holds upstream billing feed fetch settings
type FeedConfig struct {
	BaseURL         string
	APIKey          string
	PageSize        int
	RetentionWindow time.Duration // how far back re-ingestion reaches
	RequestTimeout  time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	WorkerCount     int
}

// AttributionConfig controls the pending-dependency retry queue
type AttributionConfig struct {
	MaxPendingRetries int
	RetryDelay        time.Duration
	BatchSize         int
}

// ReconciliationConfig holds drift tolerance thresholds, in percent
type ReconciliationConfig struct {
	TolerancePercent    float64
	UpstreamOnlyPercent float64
}

// AssemblyConfig holds invoice assembly settings
type AssemblyConfig struct {
	LockTTL time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with WAREBILL_ prefix (e.g., WAREBILL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("WAREBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
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
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Feed: FeedConfig{
			BaseURL:         v.GetString("feed.base_url"),
			APIKey:          v.GetString("feed.api_key"),
			PageSize:        v.GetInt("feed.page_size"),
			RetentionWindow: v.GetDuration("feed.retention_window"),
			RequestTimeout:  v.GetDuration("feed.request_timeout"),
			MaxRetries:      v.GetInt("feed.max_retries"),
			RetryBackoff:    v.GetDuration("feed.retry_backoff"),
			WorkerCount:     v.GetInt("feed.worker_count"),
		},
		Attribution: AttributionConfig{
			MaxPendingRetries: v.GetInt("attribution.max_pending_retries"),
			RetryDelay:        v.GetDuration("attribution.retry_delay"),
			BatchSize:         v.GetInt("attribution.batch_size"),
		},
		Reconciliation: ReconciliationConfig{
			TolerancePercent:    v.GetFloat64("reconciliation.tolerance_percent"),
			UpstreamOnlyPercent: v.GetFloat64("reconciliation.upstream_only_percent"),
		},
		Assembly: AssemblyConfig{
			LockTTL: v.GetDuration("assembly.lock_ttl"),
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
		cfg.App.Name = "warebill-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
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
		cfg.Database.DBName = "warebill"
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
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Feed.PageSize == 0 {
		cfg.Feed.PageSize = 500
	}
	if cfg.Feed.RetentionWindow == 0 {
		cfg.Feed.RetentionWindow = 45 * 24 * time.Hour
	}
	if cfg.Feed.RequestTimeout == 0 {
		cfg.Feed.RequestTimeout = 30 * time.Second
	}
	if cfg.Feed.MaxRetries == 0 {
		cfg.Feed.MaxRetries = 3
	}
	if cfg.Feed.RetryBackoff == 0 {
		cfg.Feed.RetryBackoff = 2 * time.Second
	}
	if cfg.Feed.WorkerCount == 0 {
		cfg.Feed.WorkerCount = 4
	}
	if cfg.Attribution.MaxPendingRetries == 0 {
		cfg.Attribution.MaxPendingRetries = 5
	}
	if cfg.Attribution.RetryDelay == 0 {
		cfg.Attribution.RetryDelay = 15 * time.Minute
	}
	if cfg.Attribution.BatchSize == 0 {
		cfg.Attribution.BatchSize = 200
	}
	if cfg.Reconciliation.TolerancePercent == 0 {
		cfg.Reconciliation.TolerancePercent = 1.0
	}
	if cfg.Reconciliation.UpstreamOnlyPercent == 0 {
		cfg.Reconciliation.UpstreamOnlyPercent = 10.0
	}
	if cfg.Assembly.LockTTL == 0 {
		cfg.Assembly.LockTTL = 10 * time.Minute
	}
}

func (c *Config) validate() error {
	// Validate connection pool settings
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
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Feed.APIKey == "" {
			return fmt.Errorf("feed.api_key is required in production")
		}
	}

	if c.Feed.PageSize < 1 || c.Feed.PageSize > 1000 {
		return fmt.Errorf("feed.page_size must be between 1 and 1000, got %d", c.Feed.PageSize)
	}
	if c.Feed.WorkerCount < 1 {
		return fmt.Errorf("feed.worker_count must be positive")
	}
	if c.Attribution.MaxPendingRetries < 1 {
		return fmt.Errorf("attribution.max_pending_retries must be positive")
	}
	if c.Reconciliation.TolerancePercent < 0 {
		return fmt.Errorf("reconciliation.tolerance_percent cannot be negative")
	}
	if c.Reconciliation.UpstreamOnlyPercent < c.Reconciliation.TolerancePercent {
		return fmt.Errorf("reconciliation.upstream_only_percent (%f) cannot be below tolerance_percent (%f)",
			c.Reconciliation.UpstreamOnlyPercent, c.Reconciliation.TolerancePercent)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
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

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
