package adminauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "short secret invalid",
			mutate: func(c *Config) {
				c.JWT.Secret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "refresh shorter than access invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 30 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "blank issuer invalid",
			mutate: func(c *Config) {
				c.JWT.Issuer = "  "
			},
			wantValid: false,
		},
		{
			name: "bcrypt algorithm valid",
			mutate: func(c *Config) {
				c.Password.Algorithm = "bcrypt"
			},
			wantValid: true,
		},
		{
			name: "unknown algorithm invalid",
			mutate: func(c *Config) {
				c.Password.Algorithm = "md5"
			},
			wantValid: false,
		},
		{
			name: "bcrypt cost out of range invalid",
			mutate: func(c *Config) {
				c.Password.BcryptCost = 4
			},
			wantValid: false,
		},
		{
			name: "argon2 memory below floor invalid",
			mutate: func(c *Config) {
				c.Password.Argon2.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "policy min length below 8 invalid",
			mutate: func(c *Config) {
				c.Password.Policy.MinLength = 6
			},
			wantValid: false,
		},
		{
			name: "zero expiration days invalid",
			mutate: func(c *Config) {
				c.Password.Policy.ExpirationDays = 0
			},
			wantValid: false,
		},
		{
			name: "zero lockout threshold invalid",
			mutate: func(c *Config) {
				c.Lockout.MaxFailedAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "rate limit zero budget invalid",
			mutate: func(c *Config) {
				c.RateLimit.Guest = 0
			},
			wantValid: false,
		},
		{
			name: "rate limit zero budget ignored when disabled",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Guest = 0
			},
			wantValid: true,
		},
		{
			name: "default role without prefix invalid",
			mutate: func(c *Config) {
				c.Account.DefaultRole = "VIEWER"
			},
			wantValid: false,
		},
		{
			name: "audit zero buffer invalid",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency histograms without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without a secret must not validate")
	}
}

func TestCloneConfigCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.VerifySecrets = map[string][]byte{"old": []byte(testSecret)}

	clone := cloneConfig(cfg)
	cfg.JWT.Secret[0] = 'X'
	cfg.JWT.VerifySecrets["old"][0] = 'X'

	if clone.JWT.Secret[0] != '0' || clone.JWT.VerifySecrets["old"][0] != '0' {
		t.Fatal("clone shares secret storage with the original")
	}
}
