package port

import (
	"context"
	"strings"
	"time"
)

// Session is a point-in-time snapshot of the bearer credential. Token sources replace
// sessions; callers never mutate one.
type Session struct {
	AccessToken   string
	ExpiresAt     time.Time
	Authenticated bool
}

// HasToken reports whether the session carries an access token.
func (s Session) HasToken() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// ExpiringWithin reports whether the token expires within margin of now. A session
// without a known expiry never reports expiring.
func (s Session) ExpiringWithin(now time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return s.ExpiresAt.Add(-margin).Before(now)
}

// TokenSource owns the credential lifecycle. Session must be cheap and safe for
// concurrent use. RefreshSilent blocks until the new session is observable through
// Session. SignInRedirect initiates interactive sign-in and returns without waiting
// for it to complete.
type TokenSource interface {
	Session() Session
	RefreshSilent(ctx context.Context) error
	SignInRedirect(ctx context.Context) error
}
