package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Hash     HashConfig
	JWT      JWTConfig
	Security SecurityConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectAttempts   uint64
}

type ServerConfig struct {
	Host           string
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// HashConfig carries the Argon2id cost parameters and the server-wide secret
// mixed into every password digest.
type HashConfig struct {
	Secret    string
	Lanes     uint8
	TimeCost  uint32
	MemoryKiB uint32
	Workers   int
	QueueSize int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type SecurityConfig struct {
	AllowedFailedLoginAttempts int
	AccountLockDuration        time.Duration
	PasswordResetTimePeriod    time.Duration
	ResetMinResponseTime       time.Duration
	CleanupInterval            time.Duration
}

type EmailConfig struct {
	Enabled   bool
	AWSRegion string
	FromEmail string
	ResetURL  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabase(),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", ""),
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Hash: HashConfig{
			Secret:    getEnv("HASH_SECRET", ""),
			Lanes:     uint8(getEnvAsInt("ARGON_LANES", 8)),
			TimeCost:  uint32(getEnvAsInt("ARGON_TIME_COST", 10)),
			MemoryKiB: uint32(getEnvAsInt("ARGON_MEMORY", 2048)),
			Workers:   getEnvAsInt("HASH_WORKERS", runtime.NumCPU()),
			QueueSize: getEnvAsInt("HASH_QUEUE", 64),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "warden"),
		},
		Security: SecurityConfig{
			AllowedFailedLoginAttempts: getEnvAsInt("ALLOWED_FAILED_LOGIN_ATTEMPTS", 50),
			AccountLockDuration:        getEnvAsDuration("ACCOUNT_LOCK_DURATION", 24*time.Hour),
			PasswordResetTimePeriod:    getEnvAsDuration("PASSWORD_RESET_TIME_PERIOD", 1*time.Hour),
			ResetMinResponseTime:       getEnvAsDuration("RESET_MIN_RESPONSE_TIME", 250*time.Millisecond),
			CleanupInterval:            getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			Enabled:   getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
			FromEmail: getEnv("EMAIL_FROM", ""),
			ResetURL:  getEnv("RESET_URL", "http://localhost:8080/reset"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for commands that need
// no secrets.
func LoadDatabase() DatabaseConfig {
	_ = godotenv.Load()
	return loadDatabase()
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "warden"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		ConnectAttempts:   uint64(getEnvAsInt("DB_CONNECT_ATTEMPTS", 5)),
	}
}

func (c *Config) validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSecret("JWT_SECRET", c.JWT.Secret, c.Server.Env); err != nil {
		return err
	}
	if err := validateSecret("HASH_SECRET", c.Hash.Secret, c.Server.Env); err != nil {
		return err
	}

	if c.Hash.Lanes == 0 {
		return fmt.Errorf("ARGON_LANES must be greater than zero")
	}
	if c.Hash.TimeCost == 0 {
		return fmt.Errorf("ARGON_TIME_COST must be greater than zero")
	}
	if c.Hash.MemoryKiB < 8*uint32(c.Hash.Lanes) {
		return fmt.Errorf("ARGON_MEMORY must be at least 8 KiB per lane (got %d for %d lanes)",
			c.Hash.MemoryKiB, c.Hash.Lanes)
	}
	if c.Hash.Workers < 1 {
		return fmt.Errorf("HASH_WORKERS must be at least 1")
	}

	if c.Security.AllowedFailedLoginAttempts < 1 {
		return fmt.Errorf("ALLOWED_FAILED_LOGIN_ATTEMPTS must be at least 1")
	}
	if c.Security.AccountLockDuration <= 0 || c.Security.PasswordResetTimePeriod <= 0 {
		return fmt.Errorf("ACCOUNT_LOCK_DURATION and PASSWORD_RESET_TIME_PERIOD must be positive")
	}

	if c.Email.Enabled && c.Email.FromEmail == "" {
		return fmt.Errorf("EMAIL_FROM is required when EMAIL_ENABLED is true")
	}

	return nil
}

// validateSecret enforces minimum security standards for signing and hashing secrets
func validateSecret(key, secret, env string) error {
	if secret == "" {
		return fmt.Errorf("%s is required", key)
	}

	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			key, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", key)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		if env == "production" {
			return []string{}
		}
		return []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		}
	}

	return parseList(originsStr)
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
