package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("SMS_DRIVER", "")
	t.Setenv("SMS_RETRIES", "")
	t.Setenv("TEST_ECHO_OTP", "")
	t.Setenv("MONGODB_DB", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "log", cfg.SMSDriver)
	assert.Equal(t, 2, cfg.SMSRetries)
	assert.False(t, cfg.EchoOTP)
	assert.Equal(t, "sangshekkan", cfg.MongoDB)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("SMS_DRIVER", "SMSIR")
	t.Setenv("SMS_RETRIES", "4")
	t.Setenv("TEST_ECHO_OTP", "true")
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "smsir", cfg.SMSDriver)
	assert.Equal(t, 4, cfg.SMSRetries)
	assert.True(t, cfg.EchoOTP)
	assert.True(t, cfg.UsesMongo())
	assert.Equal(t, "mongodb://localhost:27017", cfg.PostgresDSN())
}

func TestPostgresDSNFromParts(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "pw", DBName: "study", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=study sslmode=disable", cfg.PostgresDSN())
	assert.False(t, cfg.UsesMongo())
}

func TestInvalidRetriesFallsBack(t *testing.T) {
	t.Setenv("SMS_RETRIES", "-1")
	assert.Equal(t, 2, Load().SMSRetries)
	t.Setenv("SMS_RETRIES", "abc")
	assert.Equal(t, 2, Load().SMSRetries)
}
