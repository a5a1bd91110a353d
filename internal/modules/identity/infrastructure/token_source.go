package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mesaYaReviews/internal/modules/identity/domain"
	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

var ErrNoOpener = errors.New("no sign-in opener configured")

type SessionStore interface {
	Load() (*domain.Credentials, error)
	Save(creds *domain.Credentials) error
	Clear() error
}

// Opener hands the interactive sign-in URL to the user. It must not wait for sign-in to finish.
type Opener func(ctx context.Context, authURL string) error

// PrintOpener writes the sign-in URL to w.
func PrintOpener(w io.Writer) Opener {
	return func(_ context.Context, authURL string) error {
		_, err := fmt.Fprintf(w, "Session expired. Sign in again at:\n  %s\n", authURL)
		return err
	}
}

// OIDCTokenSource keeps the current credentials for an OpenID Connect authority. Readers
// see whole credential values: every change swaps in a new one.
type OIDCTokenSource struct {
	client *OIDCClient
	store  SessionStore
	opener Opener
	logger *slog.Logger
	now    func() time.Time

	current atomic.Pointer[domain.Credentials]
	mu      sync.Mutex
}

// NewOIDCTokenSource restores credentials from store when one is given.
func NewOIDCTokenSource(client *OIDCClient, store SessionStore, opener Opener, logger *slog.Logger) (*OIDCTokenSource, error) {
	s := &OIDCTokenSource{client: client, store: store, opener: opener, logger: logging.OrDefault(logger), now: time.Now}
	if store != nil {
		creds, err := store.Load()
		if err != nil {
			return nil, err
		}
		s.current.Store(creds)
	}
	return s, nil
}

func (s *OIDCTokenSource) Session() port.Session {
	creds := s.current.Load()
	if !creds.HasAccessToken() {
		return port.Session{}
	}
	return port.Session{AccessToken: creds.AccessToken, ExpiresAt: creds.ExpiresAt, Authenticated: true}
}

// Username is the account the current credentials belong to, if known.
func (s *OIDCTokenSource) Username() string {
	if creds := s.current.Load(); creds != nil {
		return creds.Username
	}
	return ""
}

// SignIn runs the password grant and stores the resulting credentials.
func (s *OIDCTokenSource) SignIn(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.client.PasswordGrant(ctx, username, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.replace(creds)
	s.logger.Info("signed in", slog.String("username", creds.Username), slog.Time("expiresAt", creds.ExpiresAt))
	return nil
}

func (s *OIDCTokenSource) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(nil)
	if s.store != nil {
		return s.store.Clear()
	}
	return nil
}

// RefreshSilent renews the access token with the stored refresh token.
func (s *OIDCTokenSource) RefreshSilent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds := s.current.Load()
	if err := creds.CanRefresh(s.now()); err != nil {
		return err
	}
	fresh, err := s.client.RefreshGrant(ctx, creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh grant: %w", err)
	}
	fresh.Username = creds.Username
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
		fresh.RefreshExpiresAt = creds.RefreshExpiresAt
	}
	s.replace(fresh)
	s.logger.Debug("access token refreshed", logging.TokenAttr(fresh.AccessToken), slog.Time("expiresAt", fresh.ExpiresAt))
	return nil
}

// SignInRedirect hands the authorization URL to the opener.
func (s *OIDCTokenSource) SignInRedirect(ctx context.Context) error {
	if s.opener == nil {
		return ErrNoOpener
	}
	authURL := s.client.AuthorizationURL(uuid.NewString())
	s.logger.Info("interactive sign-in required")
	return s.opener(ctx, authURL)
}

// Follow keeps the in-memory credentials in sync with changes other processes make to
// the session file. It blocks until ctx is done.
func (s *OIDCTokenSource) Follow(ctx context.Context, store *FileSessionStore) error {
	return store.Watch(ctx, func(creds *domain.Credentials) {
		s.current.Store(creds)
		s.logger.Debug("session reloaded from disk", slog.Bool("authenticated", creds.HasAccessToken()))
	})
}

func (s *OIDCTokenSource) replace(creds *domain.Credentials) {
	s.current.Store(creds)
	if s.store == nil {
		return
	}
	if err := s.store.Save(creds); err != nil {
		s.logger.Warn("persist session failed", slog.Any("error", err))
	}
}

// StaticTokenSource serves a fixed token, or no token at all. It cannot refresh.
type StaticTokenSource struct {
	session port.Session
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	if token == "" {
		return &StaticTokenSource{}
	}
	session := port.Session{AccessToken: token, Authenticated: true}
	if exp, err := auth.ExpiryFromToken(token); err == nil {
		session.ExpiresAt = exp
	}
	return &StaticTokenSource{session: session}
}

func (s *StaticTokenSource) Session() port.Session { return s.session }

func (s *StaticTokenSource) RefreshSilent(context.Context) error {
	return domain.ErrRefreshNotAllowed
}

func (s *StaticTokenSource) SignInRedirect(context.Context) error {
	return ErrNoOpener
}

var (
	_ port.TokenSource = (*OIDCTokenSource)(nil)
	_ port.TokenSource = (*StaticTokenSource)(nil)
)
