package internaldefs

import (
	"github.com/MrEthical07/adminauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters. Name carries the
// _seconds unit suffix.
type HistogramDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: adminauth.MetricLoginSuccess, Name: "adminauth_login_success_total", Help: "Successful login attempts."},
	{ID: adminauth.MetricLoginFailure, Name: "adminauth_login_failure_total", Help: "Failed login attempts."},
	{ID: adminauth.MetricAccountLocked, Name: "adminauth_account_locked_total", Help: "Accounts locked after repeated login failures."},
	{ID: adminauth.MetricAccountUnlocked, Name: "adminauth_account_unlocked_total", Help: "Account locks cleared by expiry or an administrator."},
	{ID: adminauth.MetricRefreshSuccess, Name: "adminauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: adminauth.MetricRefreshFailure, Name: "adminauth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: adminauth.MetricSessionCreated, Name: "adminauth_session_created_total", Help: "Created sessions."},
	{ID: adminauth.MetricSessionInvalidated, Name: "adminauth_session_invalidated_total", Help: "Deactivated sessions."},
	{ID: adminauth.MetricLogout, Name: "adminauth_logout_total", Help: "Single-session logouts."},
	{ID: adminauth.MetricLogoutAll, Name: "adminauth_logout_all_total", Help: "Logout-all operations."},
	{ID: adminauth.MetricAuthenticateSuccess, Name: "adminauth_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: adminauth.MetricAuthenticateFailure, Name: "adminauth_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: adminauth.MetricPermissionDenied, Name: "adminauth_permission_denied_total", Help: "Authorization denials."},
	{ID: adminauth.MetricRateLimitHit, Name: "adminauth_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: adminauth.MetricAccountCreated, Name: "adminauth_account_created_total", Help: "Created accounts."},
	{ID: adminauth.MetricAccountDuplicate, Name: "adminauth_account_duplicate_total", Help: "Account creations rejected for a taken email."},
	{ID: adminauth.MetricPasswordChangeSuccess, Name: "adminauth_password_change_success_total", Help: "Successful password changes."},
	{ID: adminauth.MetricPasswordChangeInvalidOld, Name: "adminauth_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: adminauth.MetricPasswordChangeReuseRejected, Name: "adminauth_password_change_reuse_rejected_total", Help: "Password changes rejected for reusing the current password."},
	{ID: adminauth.MetricAccountDisabled, Name: "adminauth_account_disabled_total", Help: "Account disable operations."},
	{ID: adminauth.MetricPasswordHashUpgraded, Name: "adminauth_password_hash_upgraded_total", Help: "Password hashes rewritten with current parameters at login."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: adminauth.MetricAuthenticateLatency, Name: "adminauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDroppedName and AuditFailedName are the dispatcher health counters.
const (
	AuditDroppedName = "adminauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped on a full dispatcher buffer."
	AuditFailedName  = "adminauth_audit_failed_total"
	AuditFailedHelp  = "Audit events the sink failed to append."
)

// BucketCount matches the engine's latency bucket layout.
const BucketCount = 8

// UpperBounds are the finite bucket bounds in seconds; the last engine
// bucket is +Inf.
var UpperBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals; the last
// entry is the sample count.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
