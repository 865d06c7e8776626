package adminauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/permission"
	"github.com/MrEthical07/adminauth/session"
)

// Engine authenticates operators, issues tokens, tracks sessions and
// authorizes requests. Build one with New().Build(); an Engine is safe for
// concurrent use.
type Engine struct {
	config        Config
	accounts      account.Store
	roles         account.RoleStore
	sessions      session.Store
	redisSessions *session.RedisStore
	limiter       rate.Limiter
	window        *rate.Window
	registry      *permission.Registry
	roleManager   *permission.RoleManager
	evaluator     permission.Evaluator
	hasher        *password.Multi
	policy        password.Policy
	jwtManager    *jwt.Manager
	audit         *audit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
	flow          flows.Service
}

// Close drains the audit buffer and stops the limiter sweeper.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.window != nil {
		e.window.Stop()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditFailed returns how many audit events the sink rejected.
func (e *Engine) AuditFailed() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Failed()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// Login authenticates email and password. Client IP and User-Agent are read
// from ctx (see WithClientIP and WithUserAgent).
//
// An unknown email and a wrong password both return ErrInvalidCredentials.
// ErrAccountDisabled, ErrAccountLocked and ErrPasswordExpired are returned as
// themselves so clients can react.
func (e *Engine) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flow.Login(ctx, email, plain, clientFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    e.jwtManager.AccessTTL(),
		Session:      res.Session,
		Account:      newAccountInfo(res.Account),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token and its session are left unchanged.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res := e.flow.Refresh(ctx, refreshToken, clientFromContext(ctx))
	if res.Failure != flows.RefreshFailureNone {
		if res.Failure == flows.RefreshFailureStore || res.Failure == flows.RefreshFailureIssueAccess {
			e.logger.Error("adminauth: refresh failed", "account_id", res.AccountID, "error", res.Err)
		}
		return nil, res.Err
	}
	return &RefreshResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    e.jwtManager.AccessTTL(),
	}, nil
}

// Logout deactivates the session behind refreshToken. It is idempotent and
// ignores tokens that do not verify; only store failures are returned.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.Logout(ctx, refreshToken, clientFromContext(ctx))
}

// LogoutAll deactivates every session of accountID and returns how many
// were active.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.flow.LogoutAll(ctx, accountID, clientFromContext(ctx))
}

// IsSessionValid reports whether refreshToken verifies and still has an
// active, unexpired session.
func (e *Engine) IsSessionValid(ctx context.Context, refreshToken string) bool {
	if !e.ready() {
		return false
	}
	if _, err := e.jwtManager.VerifyKind(refreshToken, jwt.KindRefresh); err != nil {
		return false
	}
	sess, err := e.sessions.FindActiveByTokenHash(ctx, session.HashToken(refreshToken))
	if err != nil {
		return false
	}
	return sess.Valid(e.now())
}

// ListSessions returns the active sessions of accountID, oldest first.
func (e *Engine) ListSessions(ctx context.Context, accountID string) ([]session.Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.sessions.ListActiveForAccount(ctx, accountID)
}

// Authenticate verifies an access token and returns its principal. With
// Session.CheckAccountState the account is loaded as well: disabled and
// locked accounts are rejected, and an elapsed lock is cleared.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (permission.Principal, error) {
	if !e.ready() {
		return permission.Principal{}, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	claims, err := e.jwtManager.VerifyKind(accessToken, jwt.KindAccess)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return permission.Principal{}, ErrInvalidToken
	}

	if e.config.Session.CheckAccountState {
		if err := e.checkAccountState(ctx, claims.Subject); err != nil {
			e.metricInc(MetricAuthenticateFailure)
			return permission.Principal{}, err
		}
	}

	e.metricInc(MetricAuthenticateSuccess)
	return permission.NewPrincipal(claims.Subject, claims.Email, claims.Name, claims.Roles, claims.Permissions), nil
}

func (e *Engine) checkAccountState(ctx context.Context, accountID string) error {
	acc, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if _, unlocked := account.CheckUnlock(acc, e.now()); unlocked && acc.Enabled {
		acc, err = account.Mutate(ctx, e.accounts, acc.ID, e.config.Lockout.SaveRetries, func(a account.Account) (account.Account, error) {
			next, _ := account.CheckUnlock(a, e.now())
			return next, nil
		})
		if err != nil {
			if errors.Is(err, account.ErrVersionConflict) {
				return ErrStoreConflict
			}
			return err
		}
		e.metricInc(MetricAccountUnlocked)
		e.emitAudit(ctx, audit.AccountUnlocked, acc.ID, acc.Email, true, "Lock expired")
	}

	switch account.StateOf(acc, e.now()) {
	case account.StateDisabled:
		return ErrAccountDisabled
	case account.StateLocked:
		return ErrAccountLocked
	}
	if account.PasswordExpired(acc, e.now()) {
		return ErrPasswordExpired
	}
	return nil
}

// Authorize returns nil when p satisfies req and ErrPermissionDenied
// otherwise. Denials are audited.
func (e *Engine) Authorize(ctx context.Context, p permission.Principal, req permission.Requirement) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.evaluator.Allowed(p, req) {
		return nil
	}
	e.metricInc(MetricPermissionDenied)
	e.emitAudit(ctx, audit.PermissionDenied, p.ID, p.Email, false, "Access denied: "+req.String())
	return ErrPermissionDenied
}

// ValidatePassword scores a candidate password against the configured policy.
func (e *Engine) ValidatePassword(plain string) password.Result {
	return e.policy.Validate(plain)
}

// GeneratePassword returns a random password satisfying the policy.
func (e *Engine) GeneratePassword(length int) (string, error) {
	return e.policy.Generate(length)
}

// Health probes the session backend. Only a Redis-backed store is probed;
// other stores report healthy.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{}
	}
	status := HealthStatus{
		SessionStoreOK: true,
		AuditDropped:   e.AuditDropped(),
		AuditFailed:    e.AuditFailed(),
	}
	if e.redisSessions != nil {
		latency, err := e.redisSessions.Ping(ctx)
		status.SessionStoreOK = err == nil
		status.RedisLatency = latency
	}
	return status
}
