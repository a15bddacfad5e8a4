package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                  string
	DBURL                 string
	DBAutoMigrate         bool
	JWTSecret             string
	AccessTokenTTLMins    int
	RefreshTokenTTLHours  int
	TMDBBaseURL           string
	TMDBImageURL          string
	TMDBAPIKey            string
	TMDBTimeoutSecs       int
	TMDBCacheSecs         int
	CatalogRateLimitRPS   float64
	CatalogRateLimitBurst int
	CollationLocale       language.Tag
	LogLevel              string
	LogFormat             string
	ReadTimeoutSecs       int
	WriteTimeoutSecs      int
	IdleTimeoutSecs       int
	DBMaxConns            int
	DBMinConns            int
	DBMaxIdleSecs         int
	DBMaxLifeSecs         int
	DBConnTimeoutSecs     int
	DBStatementCache      int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                  getEnv("PORT", "8000"),
		DBURL:                 os.Getenv("DB_URL"),
		DBAutoMigrate:         getEnvBool("DB_AUTO_MIGRATE", false),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AccessTokenTTLMins:    getEnvInt("ACCESS_TOKEN_TTL_MINS", 60),
		RefreshTokenTTLHours:  getEnvInt("REFRESH_TOKEN_TTL_HOURS", 24),
		TMDBBaseURL:           getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageURL:          getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p/w500"),
		TMDBAPIKey:            os.Getenv("TMDB_API_KEY"),
		TMDBTimeoutSecs:       getEnvInt("TMDB_TIMEOUT_SECS", 5),
		TMDBCacheSecs:         getEnvInt("TMDB_CACHE_SECS", 300),
		CatalogRateLimitRPS:   getEnvFloat("CATALOG_RATE_LIMIT_RPS", 5),
		CatalogRateLimitBurst: getEnvInt("CATALOG_RATE_LIMIT_BURST", 10),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		ReadTimeoutSecs:       getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:      getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:       getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:            getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:            getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:         getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:         getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:     getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:      getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	tag, err := language.Parse(getEnv("COLLATION_LOCALE", "en"))
	if err != nil {
		return Config{}, fmt.Errorf("COLLATION_LOCALE is not a valid language tag: %w", err)
	}
	cfg.CollationLocale = tag

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.TMDBAPIKey == "" {
		return Config{}, fmt.Errorf("TMDB_API_KEY is required")
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if cfg.TMDBCacheSecs < 0 {
		return Config{}, fmt.Errorf("TMDB_CACHE_SECS must be non-negative")
	}
	if cfg.CatalogRateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("CATALOG_RATE_LIMIT_RPS must be positive")
	}
	if cfg.CatalogRateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("CATALOG_RATE_LIMIT_BURST must be positive")
	}
	if cfg.AccessTokenTTLMins <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL_MINS must be positive")
	}
	if cfg.RefreshTokenTTLHours <= 0 {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL_HOURS must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMins) * time.Minute
}

// RefreshTokenTTL is the lifetime of issued refresh tokens.
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
