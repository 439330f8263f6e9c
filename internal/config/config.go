package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tenant-auth-core/internal/keystore"
)

type Config struct {
	ServerPort              string
	LogFormat               string
	LogLevel                string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	RSAPrivateKey           string
	RSAPublicKey            string
	AESKey                  string
	HMACKey                 string
	ActionTokenTimezone     string
	ActionTokenCleanup      time.Duration
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	BootstrapCustomer       string
	BootstrapAdminEmail     string
	BootstrapAdminPassword  string
	BootstrapClientID       string
	BootstrapClientSecret   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		RedisAddr:               strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getInt("REDIS_DB", 0),
		RSAPrivateKey:           strings.TrimSpace(os.Getenv("RSA_PRIVATE_KEY")),
		RSAPublicKey:            strings.TrimSpace(os.Getenv("RSA_PUBLIC_KEY")),
		AESKey:                  strings.TrimSpace(os.Getenv("AES_KEY")),
		HMACKey:                 strings.TrimSpace(os.Getenv("HMAC_KEY")),
		ActionTokenTimezone:     getEnv("ACTION_TOKEN_TIMEZONE", "UTC"),
		ActionTokenCleanup:      getDuration("ACTION_TOKEN_CLEANUP_INTERVAL", time.Hour),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		BootstrapCustomer:       getEnv("BOOTSTRAP_CUSTOMER", "platform"),
		BootstrapAdminEmail:     strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword:  os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapClientID:       strings.TrimSpace(os.Getenv("BOOTSTRAP_CLIENT_ID")),
		BootstrapClientSecret:   os.Getenv("BOOTSTRAP_CLIENT_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.ActionTokenCleanup <= 0 {
		return fmt.Errorf("ACTION_TOKEN_CLEANUP_INTERVAL must be positive")
	}

	if _, err := c.ActionTokenLocation(); err != nil {
		return err
	}

	if c.RateLimitRPM <= 0 || c.AuthRateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM and AUTH_RATE_LIMIT_RPM must be positive")
	}

	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	if (c.BootstrapClientID == "") != (c.BootstrapClientSecret == "") {
		return fmt.Errorf("BOOTSTRAP_CLIENT_ID and BOOTSTRAP_CLIENT_SECRET must be set together")
	}

	return nil
}

// KeySource returns the raw key material for keystore.Load. Missing or
// malformed keys are reported there, not here.
func (c *Config) KeySource() keystore.Source {
	return keystore.Source{
		RSAPrivateKey: c.RSAPrivateKey,
		RSAPublicKey:  c.RSAPublicKey,
		AESKey:        c.AESKey,
		HMACKey:       c.HMACKey,
	}
}

func (c *Config) ActionTokenLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ActionTokenTimezone)
	if err != nil {
		return nil, fmt.Errorf("ACTION_TOKEN_TIMEZONE %q: %w", c.ActionTokenTimezone, err)
	}
	return loc, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
