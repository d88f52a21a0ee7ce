package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort            string
	LogLevel            string
	DBDriver            string
	PostgresDSN         string
	DBConnectTimeout    time.Duration
	RedisURL            string
	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxIdle       time.Duration
	DBConnMaxLife       time.Duration
	RequestTimeout      time.Duration
	TrustedProxies      []netip.Prefix
	ShutdownTimeout     time.Duration
	UploadDir           string
	MaxUploadBytes      int64
	AllowPlacedApply    bool
	AnalyticsCacheTTL   time.Duration
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURL   string
	GoogleAllowedDomain string
	BootstrapAdminEmail string
	BootstrapAdminPass  string
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "pgx")),
		PostgresDSN:         getEnv("DATABASE_URL", ""),
		DBConnectTimeout:    getDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		RedisURL:            getEnv("REDIS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AccessTokenTTL:      getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:     getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		DBMaxOpenConns:      getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:      getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:       getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:       getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		UploadDir:           getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_BYTES", 5<<20)),
		AllowPlacedApply:    getBool("ALLOW_PLACED_APPLY", false),
		AnalyticsCacheTTL:   getDuration("ANALYTICS_CACHE_TTL", time.Minute),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:   getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleAllowedDomain: strings.ToLower(getEnv("GOOGLE_ALLOWED_DOMAIN", "")),
		BootstrapAdminEmail: strings.ToLower(getEnv("BOOTSTRAP_ADMIN_EMAIL", "")),
		BootstrapAdminPass:  getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	missing := make([]string, 0, 2)
	if cfg.PostgresDSN == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if cfg.GoogleClientID != "" && (cfg.GoogleClientSecret == "" || cfg.GoogleRedirectURL == "") {
		return nil, fmt.Errorf("GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required when GOOGLE_CLIENT_ID is set")
	}
	if cfg.DBDriver != "pgx" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("DB_DRIVER must be pgx or postgres, got %q", cfg.DBDriver)
	}
	proxies, err := parseProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	return cfg, nil
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// parseProxies reads a comma separated list of addresses or CIDR ranges.
func parseProxies(value string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
