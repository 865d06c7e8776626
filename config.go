package adminauth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth/password"
)

const minSecretBytes = 32

// Config is the full engine configuration. Build clones it, so mutating a
// Config after Build has no effect on the running Engine.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures HS256 token issuance.
type JWTConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	KeyID      string
	// VerifySecrets holds retired secrets keyed by kid.
	VerifySecrets map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures hashing and the strength policy.
type PasswordConfig struct {
	// Algorithm selects the primary hasher: "argon2id" (default) or "bcrypt".
	// The other one is kept for verifying existing hashes.
	Algorithm      string
	Argon2         password.Argon2Params
	BcryptCost     int
	UpgradeOnLogin bool
	Policy         password.Policy
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lock.
type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
	// SaveRetries bounds optimistic retries on account version conflicts.
	SaveRetries int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds the per-class request budgets. Limits are per Window.
type RateLimitConfig struct {
	Enabled       bool
	Guest         int
	Authenticated int
	AuthEndpoints int
	Window        time.Duration
	SweepInterval time.Duration
	RedisPrefix   string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures refresh-token sessions.
type SessionConfig struct {
	RedisPrefix string
	// CheckAccountState makes Authenticate load the account on every call and
	// reject disabled, locked or password-expired accounts even while their
	// access token is valid.
	CheckAccountState bool
}

// AccountConfig configures account administration.
type AccountConfig struct {
	DefaultRole string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled       bool
	BufferSize    int
	DropIfFull    bool
	AppendTimeout time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. JWT.Secret is left empty and
// must be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:     "adminauth",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:      "argon2id",
			Argon2:         password.DefaultArgon2Params(),
			BcryptCost:     password.DefaultBcryptCost,
			UpgradeOnLogin: true,
			Policy:         password.DefaultPolicy(),
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			Duration:          30 * time.Minute,
			SaveRetries:       3,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Guest:         100,
			Authenticated: 1000,
			AuthEndpoints: 100,
			Window:        time.Hour,
			SweepInterval: 10 * time.Minute,
			RedisPrefix:   "rl",
		},
		Session: SessionConfig{
			RedisPrefix:       "as",
			CheckAccountState: true,
		},
		Account: AccountConfig{
			DefaultRole: "ROLE_VIEWER",
		},
		Audit: AuditConfig{
			Enabled:       true,
			BufferSize:    1024,
			DropIfFull:    true,
			AppendTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func defaultConfig() Config {
	return DefaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.JWT.VerifySecrets != nil {
		out.JWT.VerifySecrets = make(map[string][]byte, len(cfg.JWT.VerifySecrets))
		for kid, secret := range cfg.JWT.VerifySecrets {
			out.JWT.VerifySecrets[kid] = cloneBytes(secret)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < minSecretBytes {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}

	// Password
	switch c.Password.Algorithm {
	case "argon2id", "bcrypt":
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}
	if err := c.Password.Argon2.Validate(); err != nil {
		return errors.New("Password Argon2: " + err.Error())
	}
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 10 || c.Password.BcryptCost > 31) {
		return errors.New("Password BcryptCost must be within [10, 31]")
	}
	if c.Password.Policy.MinLength < 8 {
		return errors.New("Password Policy MinLength must be >= 8")
	}
	if c.Password.Policy.ExpirationDays <= 0 {
		return errors.New("Password Policy ExpirationDays must be > 0")
	}
	if c.Password.Policy.MinEntropyBits < 0 {
		return errors.New("Password Policy MinEntropyBits must be >= 0")
	}

	// Lockout
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("Lockout MaxFailedAttempts must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}
	if c.Lockout.SaveRetries < 0 {
		return errors.New("Lockout SaveRetries must be >= 0")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Guest <= 0 || c.RateLimit.Authenticated <= 0 || c.RateLimit.AuthEndpoints <= 0 {
			return errors.New("RateLimit limits must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if c.RateLimit.SweepInterval < 0 {
			return errors.New("RateLimit SweepInterval must be >= 0")
		}
	}

	// Account
	if c.Account.DefaultRole != "" && !strings.HasPrefix(c.Account.DefaultRole, "ROLE_") {
		return errors.New("Account DefaultRole must start with ROLE_")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.AppendTimeout < 0 {
		return errors.New("Audit AppendTimeout must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
