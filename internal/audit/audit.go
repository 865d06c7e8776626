package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Kind enumerates security events.
type Kind string

const (
	LoginSuccess     Kind = "LOGIN_SUCCESS"
	LoginFailure     Kind = "LOGIN_FAILURE"
	Logout           Kind = "LOGOUT"
	PasswordChange   Kind = "PASSWORD_CHANGE"
	AccountLocked    Kind = "ACCOUNT_LOCKED"
	AccountUnlocked  Kind = "ACCOUNT_UNLOCKED"
	AccountDisabled  Kind = "ACCOUNT_DISABLED"
	AccountEnabled   Kind = "ACCOUNT_ENABLED"
	RoleAssigned     Kind = "ROLE_ASSIGNED"
	RoleRemoved      Kind = "ROLE_REMOVED"
	UserCreated      Kind = "USER_CREATED"
	PermissionDenied Kind = "PERMISSION_DENIED"
	TokenRefresh     Kind = "TOKEN_REFRESH"
	SessionExpired   Kind = "SESSION_EXPIRED"
	RateLimited      Kind = "RATE_LIMITED"
)

// Event is an immutable audit record. AccountID is empty when the event
// could not be tied to an account, e.g. a login with an unknown email.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink persists audit events. Errors are logged by the dispatcher and
// never reach the caller that raised the event.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Append(context.Context, Event) error { return nil }

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Append(_ context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.writer.Write(data)
	return err
}

// SlogSink records events as structured log lines.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Append(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "audit",
		slog.String("id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.String("account_id", event.AccountID),
		slog.String("email", event.Email),
		slog.String("ip", event.IP),
		slog.String("user_agent", event.UserAgent),
		slog.Bool("success", event.Success),
		slog.String("detail", event.Detail),
		slog.Time("timestamp", event.Timestamp),
	)
	return nil
}

// MultiSink appends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
