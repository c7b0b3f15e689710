package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"WAREBILL_APP_NAME":                  os.Getenv("WAREBILL_APP_NAME"),
		"WAREBILL_APP_ENV":                   os.Getenv("WAREBILL_APP_ENV"),
		"WAREBILL_DATABASE_HOST":             os.Getenv("WAREBILL_DATABASE_HOST"),
		"WAREBILL_DATABASE_PORT":             os.Getenv("WAREBILL_DATABASE_PORT"),
		"WAREBILL_DATABASE_USER":             os.Getenv("WAREBILL_DATABASE_USER"),
		"WAREBILL_DATABASE_PASSWORD":         os.Getenv("WAREBILL_DATABASE_PASSWORD"),
		"WAREBILL_DATABASE_DBNAME":           os.Getenv("WAREBILL_DATABASE_DBNAME"),
		"WAREBILL_DATABASE_SSLMODE":          os.Getenv("WAREBILL_DATABASE_SSLMODE"),
		"WAREBILL_DATABASE_MAX_OPEN_CONNS":   os.Getenv("WAREBILL_DATABASE_MAX_OPEN_CONNS"),
		"WAREBILL_DATABASE_MAX_IDLE_CONNS":   os.Getenv("WAREBILL_DATABASE_MAX_IDLE_CONNS"),
		"WAREBILL_FEED_API_KEY":              os.Getenv("WAREBILL_FEED_API_KEY"),
		"WAREBILL_FEED_PAGE_SIZE":            os.Getenv("WAREBILL_FEED_PAGE_SIZE"),
		"WAREBILL_RECONCILIATION_TOLERANCE_PERCENT": os.Getenv("WAREBILL_RECONCILIATION_TOLERANCE_PERCENT"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "warebill-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "warebill", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 500, cfg.Feed.PageSize)
		assert.Equal(t, 45*24*time.Hour, cfg.Feed.RetentionWindow)
		assert.Equal(t, 5, cfg.Attribution.MaxPendingRetries)
		assert.Equal(t, 1.0, cfg.Reconciliation.TolerancePercent)
		assert.Equal(t, 10.0, cfg.Reconciliation.UpstreamOnlyPercent)
		assert.Equal(t, 10*time.Minute, cfg.Assembly.LockTTL)
	})

	t.Run("loads values from environment variables with WAREBILL prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("WAREBILL_APP_NAME", "test-biller")
		os.Setenv("WAREBILL_DATABASE_HOST", "testdb.local")
		os.Setenv("WAREBILL_DATABASE_PORT", "5433")
		os.Setenv("WAREBILL_DATABASE_USER", "testuser")
		os.Setenv("WAREBILL_DATABASE_PASSWORD", "testpass")
		os.Setenv("WAREBILL_DATABASE_DBNAME", "testdb")
		os.Setenv("WAREBILL_FEED_PAGE_SIZE", "100")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-biller", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, 100, cfg.Feed.PageSize)
	})

	t.Run("rejects production without database password", func(t *testing.T) {
		clearEnv()
		os.Setenv("WAREBILL_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")
	})

	t.Run("rejects production with sslmode disable", func(t *testing.T) {
		clearEnv()
		os.Setenv("WAREBILL_APP_ENV", "production")
		os.Setenv("WAREBILL_DATABASE_PASSWORD", "secret")
		os.Setenv("WAREBILL_FEED_API_KEY", "key")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("rejects page size out of range", func(t *testing.T) {
		clearEnv()
		os.Setenv("WAREBILL_FEED_PAGE_SIZE", "5000")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "feed.page_size")
	})

	t.Run("rejects upstream-only threshold below tolerance", func(t *testing.T) {
		clearEnv()
		os.Setenv("WAREBILL_RECONCILIATION_TOLERANCE_PERCENT", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream_only_percent")
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	t.Run("builds DSN with escaped credentials", func(t *testing.T) {
		d := DatabaseConfig{
			Host:     "db.internal",
			Port:     5432,
			User:     "biller",
			Password: "p@ss:word/!",
			DBName:   "warebill",
			SSLMode:  "require",
		}

		dsn := d.DSN()
		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "db.internal:5432")
		assert.Contains(t, dsn, "sslmode=require")
		assert.NotContains(t, dsn, "p@ss:word/!")
	})
}

func TestRedisConfigAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
