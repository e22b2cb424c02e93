package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProductionConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("NODE_ENV", "")
		t.Setenv("APP_ENV", "")

		cfg, err := LoadProductionConfig()
		require.NoError(t, err)

		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
		assert.Equal(t, 10, cfg.Upload.MaxResponseErrors)
		assert.Equal(t, 20, cfg.Upload.DefaultHistoryLimit)
		assert.Equal(t, 15*time.Minute, cfg.Upload.StaleJobTimeout)
		assert.Greater(t, int64(cfg.Server.BodyLimit), cfg.Upload.MaxFileSize)
		assert.Equal(t, "development", cfg.Deployment.Environment)
		assert.False(t, cfg.Deployment.IsProduction())
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("PORT", "8088")
		t.Setenv("CACHE_DEFAULT_TTL", "45s")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
		t.Setenv("NODE_ENV", "production")

		cfg, err := LoadProductionConfig()
		require.NoError(t, err)

		assert.Equal(t, 8088, cfg.Server.Port)
		assert.Equal(t, 45*time.Second, cfg.Cache.DefaultTTL)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
		assert.True(t, cfg.Deployment.IsProduction())
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")

		_, err := LoadProductionConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOG_LEVEL")
	})
}

func TestValidateProductionConfig(t *testing.T) {
	valid := func() *ProductionConfig {
		return &ProductionConfig{
			Database: DatabaseConfig{URL: "postgres://localhost/db", ConnectTimeout: time.Second},
			Server: ServerConfig{
				Port:         3001,
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
				IdleTimeout:  time.Second,
				BodyLimit:    12 << 20,
			},
			Upload: UploadConfig{
				MaxFileSize:         10 << 20,
				MaxResponseErrors:   10,
				DefaultHistoryLimit: 20,
				MaxHistoryLimit:     100,
			},
			Logging: LoggingConfig{Level: "info", Output: "stdout"},
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateProductionConfig(valid()))
	})

	t.Run("BodyLimitBelowUploadSize", func(t *testing.T) {
		cfg := valid()
		cfg.Server.BodyLimit = 1 << 20
		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_BODY_LIMIT")
	})

	t.Run("StaleTimeoutTooShort", func(t *testing.T) {
		cfg := valid()
		cfg.Upload.ReaperInterval = time.Minute
		cfg.Upload.StaleJobTimeout = 30 * time.Second
		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "UPLOAD_STALE_JOB_TIMEOUT")
	})

	t.Run("FileOutputNeedsPath", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Output = "file"
		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOG_FILE_PATH")
	})

	t.Run("DiscreteFieldsWithoutURL", func(t *testing.T) {
		cfg := valid()
		cfg.Database.URL = ""
		err := ValidateProductionConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_HOST is required")
	})

	t.Run("DSNPrefersURL", func(t *testing.T) {
		cfg := valid()
		assert.Equal(t, "postgres://localhost/db", cfg.Database.DSN())
		cfg.Database = DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
		assert.Contains(t, cfg.Database.DSN(), "host=h port=5432 user=u password=p dbname=n sslmode=disable")
	})
}
