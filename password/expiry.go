package password

import "time"

const day = 24 * time.Hour

// ExpiryFor returns now plus the configured expiration window.
func (p Policy) ExpiryFor(now time.Time) time.Time {
	return now.Add(time.Duration(p.ExpirationDays) * day)
}

// IsExpired reports whether expiresAt has passed. A nil expiry never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(*expiresAt)
}

// DaysUntilExpiry returns the whole days left, floored at zero.
func DaysUntilExpiry(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	days := int(expiresAt.Sub(now) / day)
	if days < 0 {
		return 0
	}
	return days
}

// ExpiringSoon reports an expiry within warningDays that has not passed yet.
func ExpiringSoon(expiresAt *time.Time, now time.Time, warningDays int) bool {
	days := DaysUntilExpiry(expiresAt, now)
	return days > 0 && days <= warningDays
}
