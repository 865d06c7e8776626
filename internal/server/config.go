package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the server configuration, read once at startup.
type Config struct {
	// Server
	Port            string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Storage. Empty DatabaseURL keeps accounts in memory; empty RedisAddr
	// keeps sessions and rate windows in process.
	DatabaseURL   string
	RunMigrations bool
	RedisAddr     string
	RedisPassword string

	// Tokens
	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Rate limits per hour
	RateLimitEnabled       bool
	RateLimitGuest         int
	RateLimitAuthenticated int
	RateLimitAuthEndpoints int

	// Sessions
	CheckAccountState bool

	// Seed
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string
}

// fileConfig mirrors Config as an optional TOML file. Values read from the
// file replace the built-in defaults; environment variables still win.
type fileConfig struct {
	Server    fileServer    `toml:"server"`
	Database  fileDatabase  `toml:"database"`
	Redis     fileRedis     `toml:"redis"`
	JWT       fileJWT       `toml:"jwt"`
	RateLimit fileRateLimit `toml:"rate_limit"`
	Session   fileSession   `toml:"session"`
	Admin     fileAdmin     `toml:"admin"`
}

type fileServer struct {
	Port            string        `toml:"port"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	LogLevel        string        `toml:"log_level"`
}

type fileDatabase struct {
	URL           string `toml:"url"`
	RunMigrations bool   `toml:"run_migrations"`
}

type fileRedis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
}

type fileJWT struct {
	Secret     string        `toml:"secret"`
	Issuer     string        `toml:"issuer"`
	AccessTTL  time.Duration `toml:"access_ttl"`
	RefreshTTL time.Duration `toml:"refresh_ttl"`
}

type fileRateLimit struct {
	Enabled       bool `toml:"enabled"`
	Guest         int  `toml:"guest"`
	Authenticated int  `toml:"authenticated"`
	AuthEndpoints int  `toml:"auth_endpoints"`
}

type fileSession struct {
	CheckAccountState bool `toml:"check_account_state"`
}

type fileAdmin struct {
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	FirstName string `toml:"first_name"`
	LastName  string `toml:"last_name"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Server:    fileServer{Port: "8080", ShutdownTimeout: 30 * time.Second, LogLevel: "info"},
		Database:  fileDatabase{RunMigrations: true},
		JWT:       fileJWT{Issuer: "adminauth", AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour},
		RateLimit: fileRateLimit{Enabled: true, Guest: 100, Authenticated: 1000, AuthEndpoints: 100},
		Session:   fileSession{CheckAccountState: true},
	}
}

// loadFile decodes path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected so typos do not pass silently.
func loadFile(path string) (fileConfig, error) {
	fc := defaultFileConfig()
	if path == "" {
		return fc, nil
	}
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fc, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fc, fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return fc, nil
}

// Load reads Config from CONFIG_FILE (TOML, optional) and the environment.
// A JWT secret is required from one of them.
func Load() (*Config, error) {
	fc, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{}

	var missing []string
	cfg.JWTSecret = getEnvString("JWT_SECRET", fc.JWT.Secret)
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	cfg.Port = getEnvString("SERVER_PORT", fc.Server.Port)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", fc.Server.ShutdownTimeout)
	cfg.LogLevel = getEnvString("LOG_LEVEL", fc.Server.LogLevel)

	cfg.DatabaseURL = getEnvString("DATABASE_URL", fc.Database.URL)
	cfg.RunMigrations = getEnvBool("RUN_MIGRATIONS", fc.Database.RunMigrations)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", fc.Redis.Addr)
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", fc.Redis.Password)

	cfg.JWTIssuer = getEnvString("JWT_ISSUER", fc.JWT.Issuer)
	cfg.AccessTTL = getEnvDuration("JWT_ACCESS_TTL", fc.JWT.AccessTTL)
	cfg.RefreshTTL = getEnvDuration("JWT_REFRESH_TTL", fc.JWT.RefreshTTL)

	cfg.RateLimitEnabled = getEnvBool("RATE_LIMIT_ENABLED", fc.RateLimit.Enabled)
	cfg.RateLimitGuest = getEnvInt("RATE_LIMIT_GUEST", fc.RateLimit.Guest)
	cfg.RateLimitAuthenticated = getEnvInt("RATE_LIMIT_AUTHENTICATED", fc.RateLimit.Authenticated)
	cfg.RateLimitAuthEndpoints = getEnvInt("RATE_LIMIT_AUTH_ENDPOINTS", fc.RateLimit.AuthEndpoints)

	cfg.CheckAccountState = getEnvBool("CHECK_ACCOUNT_STATE", fc.Session.CheckAccountState)

	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", fc.Admin.Email)
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", fc.Admin.Password)
	cfg.AdminFirstName = getEnvString("ADMIN_FIRST_NAME", fc.Admin.FirstName)
	cfg.AdminLastName = getEnvString("ADMIN_LAST_NAME", fc.Admin.LastName)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
