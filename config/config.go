package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Realtime RealtimeConfig
	Redis    RedisConfig
	Auth     AuthConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type StoreConfig struct {
	Driver       string
	QueryTimeout time.Duration
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// ConnString returns DB_DSN when set, otherwise a key/value DSN built from
// the DB_HOST family of variables.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name,
	)
}

type RealtimeConfig struct {
	Backend       string
	EventBuffer   int
	KeepAlive     time.Duration
	ActionRate    float64
	ActionBurst   int
	StatsTickSpec string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	PrivilegedIdentities    []string
	FirebaseCredentialsPath string
}

type AppConfig struct {
	Environment string
	Version     string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	BackendLocal = "local"
	BackendRedis = "redis"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv reads the configuration from the process environment without
// validating it.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5001"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
			QueryTimeout: time.Duration(getEnvAsInt("STORE_QUERY_TIMEOUT_MS", 3000)) * time.Millisecond,
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "hydroaid"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Realtime: RealtimeConfig{
			Backend:       strings.ToLower(getEnv("REALTIME_BACKEND", BackendLocal)),
			EventBuffer:   getEnvAsInt("EVENT_BUFFER", 64),
			KeepAlive:     time.Duration(getEnvAsInt("STREAM_KEEPALIVE_SEC", 15)) * time.Second,
			ActionRate:    getEnvAsFloat("ACTION_RATE_PER_SEC", 5),
			ActionBurst:   getEnvAsInt("ACTION_BURST", 10),
			StatsTickSpec: getEnv("STATS_TICK_SPEC", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			PrivilegedIdentities:    getEnvAsList("PRIVILEGED_IDENTITIES", nil),
			FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.ConnString() == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required when STORE_DRIVER=%s", DriverPostgres)
		}
		if c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}

	switch c.Realtime.Backend {
	case BackendLocal:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when REALTIME_BACKEND=%s", BackendRedis)
		}
	default:
		return fmt.Errorf("REALTIME_BACKEND must be %q or %q, got %q", BackendLocal, BackendRedis, c.Realtime.Backend)
	}

	if c.Store.QueryTimeout <= 0 {
		return fmt.Errorf("STORE_QUERY_TIMEOUT_MS must be positive")
	}
	if c.Realtime.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
