package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/middleware"
	"github.com/MrEthical07/adminauth/session"
	"github.com/MrEthical07/adminauth/store/postgres"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 16

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type createUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *userPayload `json:"user,omitempty"`
}

type userPayload struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	FullName          string     `json:"full_name"`
	Enabled           bool       `json:"enabled"`
	Locked            bool       `json:"locked"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	FailedAttempts    int        `json:"failed_attempts"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordExpiresAt *time.Time `json:"password_expires_at,omitempty"`
	Roles             []string   `json:"roles"`
	Permissions       []string   `json:"permissions"`
	CreatedAt         time.Time  `json:"created_at"`
}

type sessionPayload struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newUserPayload(info adminauth.AccountInfo) *userPayload {
	return &userPayload{
		ID:                info.ID,
		Email:             info.Email,
		FirstName:         info.FirstName,
		LastName:          info.LastName,
		FullName:          info.FullName,
		Enabled:           info.Enabled,
		Locked:            info.Locked,
		LockedUntil:       info.LockedUntil,
		FailedAttempts:    info.FailedAttempts,
		LastLoginAt:       info.LastLoginAt,
		PasswordExpiresAt: info.PasswordExpiresAt,
		Roles:             info.Roles,
		Permissions:       info.Permissions,
		CreatedAt:         info.CreatedAt,
	}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the HTTP API on top of an Engine.
type Handler struct {
	engine *adminauth.Engine
	audit  *postgres.AuditStore
	db     Pinger
	logger *slog.Logger
}

// NewHandler returns a Handler. audit and db are nil when no database is
// configured; the audit endpoint then answers 404.
func NewHandler(engine *adminauth.Engine, audit *postgres.AuditStore, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, audit: audit, db: db, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(middleware.APIResponse{
		Status:  "SUCCESS",
		Message: message,
		Data:    data,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeEngineError maps engine errors to status codes. Credential failures
// stay generic; store failures are logged and reported as 500.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var policy *adminauth.PolicyError
	switch {
	case errors.As(err, &policy):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(middleware.APIResponse{
			Status:  "ERROR",
			Message: policy.Error(),
			Data: map[string]any{
				"score":       policy.Result.Score,
				"suggestions": policy.Result.Suggestions,
			},
		})
	case errors.Is(err, adminauth.ErrInvalidCredentials),
		errors.Is(err, adminauth.ErrInvalidToken),
		errors.Is(err, adminauth.ErrSessionRevoked):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, adminauth.ErrAccountDisabled),
		errors.Is(err, adminauth.ErrAccountLocked),
		errors.Is(err, adminauth.ErrPasswordExpired):
		middleware.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, adminauth.ErrPermissionDenied):
		middleware.WriteError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, adminauth.ErrPasswordReuse):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, adminauth.ErrAccountExists):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, adminauth.ErrAccountNotFound), errors.Is(err, adminauth.ErrRoleNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, adminauth.ErrStoreConflict):
		middleware.WriteError(w, http.StatusConflict, "Concurrent update, retry the request")
	case errors.Is(err, adminauth.ErrEngineNotReady):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Service unavailable")
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	res, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Login successful", tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    int64(res.ExpiresIn / time.Second),
		User:         newUserPayload(res.Account),
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Token refreshed", tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    int64(res.ExpiresIn / time.Second),
	})
}

// Logout always answers 200; an unknown or expired token is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Warn("logout failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := adminauth.PrincipalFromContext(r.Context())
	n, err := h.engine.LogoutAll(r.Context(), p.ID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Logged out from all devices", map[string]int{"sessions": n})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := adminauth.PrincipalFromContext(r.Context())
	info, err := h.engine.GetAccount(r.Context(), p.ID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", newUserPayload(info))
}

func (h *Handler) ChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, _ := adminauth.PrincipalFromContext(r.Context())
	if err := h.engine.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Password changed successfully. Please log in again.", nil)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := h.engine.CreateAccount(r.Context(), adminauth.CreateAccountRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     req.Roles,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "User created", newUserPayload(info))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", newUserPayload(info))
}

func (h *Handler) DisableUser(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.DisableAccount(r.Context(), chi.URLParam(r, "id"))
	h.respondAccount(w, r, "User disabled", info, err)
}

func (h *Handler) EnableUser(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.EnableAccount(r.Context(), chi.URLParam(r, "id"))
	h.respondAccount(w, r, "User enabled", info, err)
}

func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.UnlockAccount(r.Context(), chi.URLParam(r, "id"))
	h.respondAccount(w, r, "User unlocked", info, err)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.AssignRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "role"))
	h.respondAccount(w, r, "Role assigned", info, err)
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.RemoveRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "role"))
	h.respondAccount(w, r, "Role removed", info, err)
}

func (h *Handler) respondAccount(w http.ResponseWriter, r *http.Request, message string, info adminauth.AccountInfo, err error) {
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message, newUserPayload(info))
}

// ResetPassword is the administrator password change; the target keeps its
// sessions.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.ChangePassword(r.Context(), chi.URLParam(r, "id"), "", req.NewPassword); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Password changed", nil)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", sessionPayloads(list))
}

func sessionPayloads(list []session.Session) []sessionPayload {
	out := make([]sessionPayload, 0, len(list))
	for _, s := range list {
		out = append(out, sessionPayload{
			ID:        s.ID,
			IP:        s.IP,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out
}

func (h *Handler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.LogoutAll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Sessions revoked", map[string]int{"sessions": n})
}

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		middleware.WriteError(w, http.StatusNotFound, "Audit log storage is not configured")
		return
	}
	q := r.URL.Query()
	filter := postgres.AuditFilter{
		AccountID: q.Get("account_id"),
		Kind:      adminauth.AuditKind(q.Get("kind")),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	events, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "", events)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health(r.Context())
	dbOK := true
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		dbOK = h.db.PingContext(ctx) == nil
		cancel()
	}
	code := http.StatusOK
	state := "UP"
	if !status.SessionStoreOK || !dbOK {
		code = http.StatusServiceUnavailable
		state = "DOWN"
	}
	writeJSON(w, code, state, map[string]any{
		"database":         dbOK,
		"session_store":    status.SessionStoreOK,
		"redis_latency_ms": status.RedisLatency.Milliseconds(),
		"audit_dropped":    status.AuditDropped,
		"audit_failed":     status.AuditFailed,
	})
}
