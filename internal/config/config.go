package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Store query deadline; a timed-out query reads as "no data available now".
	QueryTimeout time.Duration

	// Redis (stats cache). Empty RedisAddr disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	// JWT issued by the external auth service
	JWTSecret string

	// Moderators
	ModeratorUserIDs string
	AdminToken       string

	// Lifecycle
	ItemExpiryAge  time.Duration
	SweepInterval  time.Duration
	MatchPoolLimit int

	// Logging
	LogLevel     string
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	SentryDSN   string
	AppEnv      string
}

func Load() *Config {
	return &Config{
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "campus_lostfound"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		QueryTimeout: parseDuration(getEnv("QUERY_TIMEOUT", "5s"), 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		StatsCacheTTL: parseDuration(getEnv("STATS_CACHE_TTL", "5m"), 5*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ModeratorUserIDs: getEnv("MODERATOR_USER_IDS", ""),
		AdminToken:       getEnv("ADMIN_TOKEN", ""),

		ItemExpiryAge:  parseDuration(getEnv("ITEM_EXPIRY_AGE", "720h"), 30*24*time.Hour),
		SweepInterval:  parseDuration(getEnv("SWEEP_INTERVAL", "24h"), 24*time.Hour),
		MatchPoolLimit: parseInt(getEnv("MATCH_POOL_LIMIT", "500"), 500),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		AppEnv:      getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UsesPostgres reports whether items are persisted in Postgres rather than in process memory.
func (c *Config) UsesPostgres() bool {
	return c.StoreDriver != "memory"
}

// Validate reports the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DBPassword == "" {
			return errors.New("DB_PASSWORD environment variable is required")
		}
	case "memory":
	default:
		return errors.New("STORE_DRIVER must be postgres or memory")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
