package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"NYUMBANI_APP_NAME":                os.Getenv("NYUMBANI_APP_NAME"),
		"NYUMBANI_APP_ENV":                 os.Getenv("NYUMBANI_APP_ENV"),
		"NYUMBANI_APP_PORT":                os.Getenv("NYUMBANI_APP_PORT"),
		"NYUMBANI_DATABASE_HOST":           os.Getenv("NYUMBANI_DATABASE_HOST"),
		"NYUMBANI_DATABASE_PORT":           os.Getenv("NYUMBANI_DATABASE_PORT"),
		"NYUMBANI_DATABASE_USER":           os.Getenv("NYUMBANI_DATABASE_USER"),
		"NYUMBANI_DATABASE_PASSWORD":       os.Getenv("NYUMBANI_DATABASE_PASSWORD"),
		"NYUMBANI_DATABASE_DBNAME":         os.Getenv("NYUMBANI_DATABASE_DBNAME"),
		"NYUMBANI_DATABASE_SSLMODE":        os.Getenv("NYUMBANI_DATABASE_SSLMODE"),
		"NYUMBANI_DATABASE_MAX_OPEN_CONNS": os.Getenv("NYUMBANI_DATABASE_MAX_OPEN_CONNS"),
		"NYUMBANI_DATABASE_MAX_IDLE_CONNS": os.Getenv("NYUMBANI_DATABASE_MAX_IDLE_CONNS"),
		"NYUMBANI_BILLING_PENALTY_RATE":    os.Getenv("NYUMBANI_BILLING_PENALTY_RATE"),
		"NYUMBANI_JWT_SECRET":              os.Getenv("NYUMBANI_JWT_SECRET"),
		"APP_ENV":                          os.Getenv("APP_ENV"),
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

		assert.Equal(t, "nyumbani-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "nyumbani", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 0.05, cfg.Billing.PenaltyRate)
		assert.Equal(t, "https://sandbox.safaricom.co.ke", cfg.Mpesa.BaseURL)
	})

	t.Run("loads values from environment variables with NYUMBANI prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("NYUMBANI_APP_NAME", "test-app")
		os.Setenv("NYUMBANI_APP_ENV", "testing")
		os.Setenv("NYUMBANI_APP_PORT", "9000")
		os.Setenv("NYUMBANI_DATABASE_HOST", "testdb.local")
		os.Setenv("NYUMBANI_DATABASE_PORT", "5433")
		os.Setenv("NYUMBANI_DATABASE_USER", "testuser")
		os.Setenv("NYUMBANI_DATABASE_PASSWORD", "testpass")
		os.Setenv("NYUMBANI_DATABASE_DBNAME", "testdb")
		os.Setenv("NYUMBANI_DATABASE_SSLMODE", "require")
		os.Setenv("NYUMBANI_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("NYUMBANI_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("NYUMBANI_BILLING_PENALTY_RATE", "0.1")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 0.1, cfg.Billing.PenaltyRate)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("NYUMBANI_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("NYUMBANI_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("NYUMBANI_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("NYUMBANI_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates penalty rate range", func(t *testing.T) {
		clearEnv()
		os.Setenv("NYUMBANI_BILLING_PENALTY_RATE", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.penalty_rate must be between 0 and 1")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"NYUMBANI_APP_ENV":               os.Getenv("NYUMBANI_APP_ENV"),
		"NYUMBANI_JWT_SECRET":            os.Getenv("NYUMBANI_JWT_SECRET"),
		"NYUMBANI_DATABASE_PASSWORD":     os.Getenv("NYUMBANI_DATABASE_PASSWORD"),
		"NYUMBANI_DATABASE_SSLMODE":      os.Getenv("NYUMBANI_DATABASE_SSLMODE"),
		"NYUMBANI_MPESA_CONSUMER_KEY":    os.Getenv("NYUMBANI_MPESA_CONSUMER_KEY"),
		"NYUMBANI_MPESA_CONSUMER_SECRET": os.Getenv("NYUMBANI_MPESA_CONSUMER_SECRET"),
		"NYUMBANI_MPESA_PASSKEY":         os.Getenv("NYUMBANI_MPESA_PASSKEY"),
		"NYUMBANI_MPESA_SHORT_CODE":      os.Getenv("NYUMBANI_MPESA_SHORT_CODE"),
		"NYUMBANI_MPESA_CALLBACK_URL":    os.Getenv("NYUMBANI_MPESA_CALLBACK_URL"),
		"APP_ENV":                        os.Getenv("APP_ENV"),
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

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("NYUMBANI_APP_ENV", "production")
		os.Setenv("NYUMBANI_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("NYUMBANI_DATABASE_PASSWORD", "secure-password")
		os.Setenv("NYUMBANI_DATABASE_SSLMODE", "require")
		os.Setenv("NYUMBANI_MPESA_CONSUMER_KEY", "consumer-key")
		os.Setenv("NYUMBANI_MPESA_CONSUMER_SECRET", "consumer-secret")
		os.Setenv("NYUMBANI_MPESA_PASSKEY", "passkey")
		os.Setenv("NYUMBANI_MPESA_SHORT_CODE", "174379")
		os.Setenv("NYUMBANI_MPESA_CALLBACK_URL", "https://pay.nyumbani.example/api/v1/payments/callback")
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("NYUMBANI_JWT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("NYUMBANI_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("NYUMBANI_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("NYUMBANI_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires daraja credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("NYUMBANI_MPESA_CONSUMER_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mpesa.consumer_key and mpesa.consumer_secret are required")
	})

	t.Run("requires https callback url in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("NYUMBANI_MPESA_CALLBACK_URL", "http://pay.nyumbani.example/callback")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mpesa.callback_url must be an https URL")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
