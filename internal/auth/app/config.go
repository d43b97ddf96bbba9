package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/plus1250/jobatrend/pkg/jwtx"
)

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"

	RefreshStoreSQL   = "sql"
	RefreshStoreRedis = "redis"
)

type Config struct {
	Issuer string // Optional: issuer claim for tokens (default: jobatrend-auth)

	Algorithm         string        // Optional: HS256 or EdDSA (default: HS256)
	SigningSecret     string        // HS256 secret, inline
	SigningSecretFile string        // HS256 secret, read from file
	SigningKeyFile    string        // EdDSA PKCS8 PEM private key
	AccessTTL         time.Duration // Optional: access token lifetime (default: 30m)
	RefreshTTL        time.Duration // Optional: refresh token lifetime (default: 7d)
	ClockSkew         time.Duration // Optional: nbf tolerance between processes (default: 30s)

	StoreDriver  string        // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile string        // Optional: path to SQLite database file (default: ./auth.db)
	DatabaseURL  string        // Required for postgres
	RefreshStore string        // Optional: sql or redis (default: sql)
	RedisAddr    string        // Required for the redis refresh store
	RedisPrefix  string        // Optional: key prefix for refresh records
	StoreTimeout time.Duration // Optional: deadline for each store call (default: 2s)

	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:            getEnvOrDefault("AUTH_ISSUER", "jobatrend-auth"),
		Algorithm:         getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgorithmHS256),
		SigningSecret:     os.Getenv("AUTH_SIGNING_SECRET"),
		SigningSecretFile: os.Getenv("AUTH_SIGNING_SECRET_FILE"),
		SigningKeyFile:    os.Getenv("AUTH_SIGNING_KEY_FILE"),
		AccessTTL:         getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:        getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ClockSkew:         getEnvDurationOrDefault("AUTH_CLOCK_SKEW", jwtx.DefaultClockSkew),

		StoreDriver:  getEnvOrDefault("AUTH_STORE_DRIVER", StoreDriverSQLite),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),
		RefreshStore: getEnvOrDefault("AUTH_REFRESH_STORE", RefreshStoreSQL),
		RedisAddr:    os.Getenv("AUTH_REDIS_ADDR"),
		RedisPrefix:  os.Getenv("AUTH_REDIS_PREFIX"),
		StoreTimeout: getEnvDurationOrDefault("AUTH_STORE_TIMEOUT", 2*time.Second),

		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configurations the service cannot start with. Missing
// key material is reported later by InitSigningKey.
func (c Config) Validate() error {
	var errs []error

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	} else if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, fmt.Errorf("access TTL %s must be shorter than refresh TTL %s", c.AccessTTL, c.RefreshTTL))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}

	switch c.Algorithm {
	case jwtx.AlgorithmHS256, jwtx.AlgorithmEdDSA:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", jwtx.ErrUnsupportedAlg, c.Algorithm))
	}

	switch c.StoreDriver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	switch c.RefreshStore {
	case RefreshStoreSQL:
	case RefreshStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("AUTH_REDIS_ADDR is required for the redis refresh store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown refresh store %q", c.RefreshStore))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
