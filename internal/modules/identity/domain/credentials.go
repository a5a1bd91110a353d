package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNoRefreshToken    = errors.New("no refresh token")
	ErrRefreshExpired    = errors.New("refresh token expired")
	ErrRefreshNotAllowed = errors.New("token source cannot refresh")
)

// Credentials is a persisted sign-in: the access token the API sees and the refresh token
// used to renew it without user interaction.
type Credentials struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitempty"`
	Username         string    `json:"username,omitempty"`
}

func (c *Credentials) HasAccessToken() bool {
	return c != nil && strings.TrimSpace(c.AccessToken) != ""
}

// CanRefresh reports why a silent refresh is impossible at now, or nil when it can run.
func (c *Credentials) CanRefresh(now time.Time) error {
	if c == nil || strings.TrimSpace(c.RefreshToken) == "" {
		return ErrNoRefreshToken
	}
	if !c.RefreshExpiresAt.IsZero() && !now.Before(c.RefreshExpiresAt) {
		return ErrRefreshExpired
	}
	return nil
}
