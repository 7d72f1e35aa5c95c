package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the service.
type Config struct {
	AppHost     string
	AppPort     string
	Environment string
	AuthSecret  string
	FrontendURL string
	LogDir      string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string
	MongoDB     string
	RedisURL    string

	SMSDriver        string
	SMSAPIKey        string
	SMSSender        string
	SMSBaseURL       string
	SMSRetries       int
	TwilioAccountSID string
	TwilioAuthToken  string

	EchoOTP bool

	AdminPhone    string
	AdminName     string
	AdminPassword string
}

// Load reads the optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppHost:     os.Getenv("APP_HOST"),
		AppPort:     getEnv("APP_PORT", "3000"),
		Environment: getEnv("NODE_ENV", "development"),
		AuthSecret:  os.Getenv("AUTH_SECRET"),
		FrontendURL: getEnv("FRONTEND_URL", "*"),
		LogDir:      getEnv("LOG_DIR", "log/app"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      os.Getenv("DB_HOST"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBName:      os.Getenv("DB_DATABASE"),
		DBUser:      os.Getenv("DB_USERNAME"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		MongoDB:     getEnv("MONGODB_DB", "sangshekkan"),
		RedisURL:    os.Getenv("REDIS_URL"),

		SMSDriver:        strings.ToLower(getEnv("SMS_DRIVER", "log")),
		SMSAPIKey:        os.Getenv("SMS_API_KEY"),
		SMSSender:        os.Getenv("SMS_SENDER"),
		SMSBaseURL:       getEnv("SMS_BASE_URL", "https://api.sms.ir"),
		SMSRetries:       getEnvInt("SMS_RETRIES", 2),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),

		EchoOTP: os.Getenv("TEST_ECHO_OTP") == "true",

		AdminPhone:    os.Getenv("ADMIN_PHONE"),
		AdminName:     getEnv("ADMIN_NAME", "مدیر سیستم"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// IsProduction reports whether NODE_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesMongo reports whether DATABASE_URL points at a MongoDB deployment.
func (c Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") || strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// PostgresDSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* variables.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser + " password=" + c.DBPassword +
		" dbname=" + c.DBName + " sslmode=" + c.DBSSLMode
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
