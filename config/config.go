package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	StoreDriver   string
	DBUrl         string
	JWTSecret     string
	AllowedOrigin string
	// Admin tokens minted by cmd/dbtool
	AdminTokenExpiry time.Duration
	// Zones and rules loaded at startup by the memory driver and by dbtool seed
	SeedFile string
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// Instants are converted to this zone before date/weekday/time-of-day are taken.
	ServiceTimezone string
	ServiceLocation *time.Location
	// Zone write locks
	LockDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ZoneLockTTL   time.Duration
	ZoneLockWait  time.Duration
	// Coverage analytics
	CacheCoverageTTL      time.Duration
	GapFillDefaultCost    float64
	GapFillDefaultMinutes int
	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	// R2 Storage (coverage snapshot archive)
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	R2UploadTimeout   time.Duration
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: .env for local dev, system env vars otherwise
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := FromEnv()
	cfg.Validate()
	return cfg
}

// FromEnv reads the configuration from the process environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StoreDriver:      getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBUrl:            getEnv("DB_DSN", ""),
		JWTSecret:        getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AllowedOrigin:    getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		AdminTokenExpiry: getDurationEnv("ADMIN_TOKEN_EXPIRY", time.Hour*24),
		SeedFile:         getEnv("SEED_FILE", ""),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 20),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 2),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		ServiceTimezone: getEnv("SERVICE_TIMEZONE", "UTC"),

		LockDriver:    getEnv("LOCK_DRIVER", LockDriverMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		ZoneLockTTL:   getDurationEnv("ZONE_LOCK_TTL", 10*time.Second),
		ZoneLockWait:  getDurationEnv("ZONE_LOCK_WAIT", 5*time.Second),

		// Coverage reports are cheap to rebuild, keep them briefly
		CacheCoverageTTL:      getDurationEnv("CACHE_COVERAGE_TTL", 5*time.Minute),
		GapFillDefaultCost:    getFloatEnv("GAP_FILL_DEFAULT_COST", 10),
		GapFillDefaultMinutes: getIntEnv("GAP_FILL_DEFAULT_MINUTES", 15),

		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 50),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2UploadTimeout:   getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),
	}
}

func (c *Config) Validate() {
	if err := c.Check(); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
}

// Check validates driver settings and resolves ServiceLocation.
func (c *Config) Check() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBUrl == "" {
			return fmt.Errorf("DB_DSN environment variable is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.LockDriver {
	case LockDriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for LOCK_DRIVER=%s", c.LockDriver)
		}
	case LockDriverMemory:
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver)
	}

	loc, err := time.LoadLocation(c.ServiceTimezone)
	if err != nil {
		return fmt.Errorf("invalid SERVICE_TIMEZONE %q: %w", c.ServiceTimezone, err)
	}
	c.ServiceLocation = loc

	if c.GapFillDefaultCost < 0 || c.GapFillDefaultMinutes < 0 {
		return fmt.Errorf("gap fill defaults must not be negative")
	}
	return nil
}

// R2Enabled reports whether coverage snapshots can be archived.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}
