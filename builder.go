package adminauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/permission"
	"github.com/MrEthical07/adminauth/session"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
//
// Every collaborator is optional: without stores the Engine runs on the
// in-memory implementations, and with WithRedis sessions and rate-limit
// windows move to Redis unless a session store is given explicitly.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts account.Store
	roles    account.RoleStore
	sessions session.Store
	limiter  rate.Limiter

	registry    *permission.Registry
	roleManager *permission.RoleManager

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs sessions and rate-limit windows with Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the account store. When store also implements
// account.RoleStore it is used for roles unless WithRoleStore is called.
func (b *Builder) WithAccountStore(store account.Store) *Builder {
	b.accounts = store
	return b
}

func (b *Builder) WithRoleStore(store account.RoleStore) *Builder {
	b.roles = store
	return b
}

func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithLimiter replaces the rate limiter chosen from the Redis setting.
func (b *Builder) WithLimiter(l rate.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithCatalog replaces the built-in permission and role catalogue used by
// Seed. Both registries are frozen by Build.
func (b *Builder) WithCatalog(registry *permission.Registry, roles *permission.RoleManager) *Builder {
	b.registry = registry
	b.roleManager = roles
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source used for lockouts, expiries, sessions
// and token timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- STORES --------
	accounts := b.accounts
	roles := b.roles
	if accounts == nil {
		mem := account.NewMemoryStore()
		accounts = mem
		if roles == nil {
			roles = mem
		}
	}
	if roles == nil {
		rs, ok := accounts.(account.RoleStore)
		if !ok {
			return nil, errors.New("role store required when the account store does not serve roles")
		}
		roles = rs
	}

	sessions := b.sessions
	var redisSessions *session.RedisStore
	if sessions == nil {
		if b.redis != nil {
			redisSessions = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, now)
			sessions = redisSessions
		} else {
			sessions = session.NewMemoryStore(now)
		}
	}

	// -------- RATE LIMITER --------
	limiter := b.limiter
	var window *rate.Window
	if limiter == nil && cfg.RateLimit.Enabled {
		if b.redis != nil {
			limiter = rate.NewRedisWindow(b.redis, cfg.RateLimit.RedisPrefix, cfg.RateLimit.Window, now)
		} else {
			window = rate.NewWindow(cfg.RateLimit.Window, now)
			limiter = window
		}
	}

	// -------- PERMISSION CATALOGUE --------
	registry, roleManager := b.registry, b.roleManager
	if registry == nil || roleManager == nil {
		var err error
		registry, roleManager, err = permission.DefaultCatalog()
		if err != nil {
			return nil, err
		}
	}
	registry.Freeze()
	roleManager.Freeze()
	if cfg.Account.DefaultRole != "" {
		if _, ok := roleManager.Role(cfg.Account.DefaultRole); !ok {
			return nil, errors.New("Account DefaultRole does not exist in the role catalogue")
		}
	}

	// -------- PASSWORDS --------
	argon, err := password.NewArgon2(cfg.Password.Argon2)
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	hasher := &password.Multi{Primary: argon, Legacy: []password.Hasher{bc}}
	if cfg.Password.Algorithm == "bcrypt" {
		hasher = &password.Multi{Primary: bc, Legacy: []password.Hasher{argon}}
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret:        cloneBytes(cfg.JWT.Secret),
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifySecrets: cfg.JWT.VerifySecrets,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:        cloneConfig(cfg),
		accounts:      accounts,
		roles:         roles,
		sessions:      sessions,
		redisSessions: redisSessions,
		limiter:       limiter,
		window:        window,
		registry:      registry,
		roleManager:   roleManager,
		evaluator:     permission.Evaluator{},
		hasher:        hasher,
		policy:        cfg.Password.Policy,
		jwtManager:    jm,
		metrics:       NewMetrics(cfg.Metrics),
		logger:        logger,
		now:           now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:       cfg.Audit.Enabled,
		BufferSize:    cfg.Audit.BufferSize,
		DropIfFull:    cfg.Audit.DropIfFull,
		AppendTimeout: cfg.Audit.AppendTimeout,
	}, b.auditSink, logger)
	engine.flow = engine.buildFlowService()

	if window != nil {
		window.Start(cfg.RateLimit.SweepInterval)
	}

	b.built = true
	return engine, nil
}
