package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

// Grant failures carry the OAuth error code as their text.
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
)

type TokenIssuer interface {
	Issue(identity auth.Identity, sessionID string) (auth.TokenPair, error)
}

type RefreshValidator interface {
	ValidateUse(token, use string) (*auth.Claims, error)
}

// GrantRequest is the form posted to the token endpoint.
type GrantRequest struct {
	GrantType    string
	ClientID     string
	Username     string
	Password     string
	RefreshToken string
}

// GrantService implements the password and refresh_token grants of the development
// identity provider against a fixed set of accounts.
type GrantService struct {
	users     map[string]string
	clientID  string
	issuer    TokenIssuer
	validator RefreshValidator
	logger    *slog.Logger
}

func NewGrantService(users map[string]string, clientID string, issuer TokenIssuer, validator RefreshValidator, logger *slog.Logger) *GrantService {
	accounts := make(map[string]string, len(users))
	for name, password := range users {
		accounts[strings.TrimSpace(name)] = password
	}
	return &GrantService{
		users:     accounts,
		clientID:  strings.TrimSpace(clientID),
		issuer:    issuer,
		validator: validator,
		logger:    logging.OrDefault(logger),
	}
}

// SubjectFor derives a stable subject for username so repeated sign-ins map to one user.
func SubjectFor(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("restaurant-review:"+strings.TrimSpace(username))).String()
}

func (s *GrantService) Exchange(ctx context.Context, req GrantRequest) (auth.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return auth.TokenPair{}, err
	}
	if s.clientID != "" && strings.TrimSpace(req.ClientID) != s.clientID {
		return auth.TokenPair{}, fmt.Errorf("%w: unknown client %q", ErrInvalidClient, req.ClientID)
	}
	switch strings.TrimSpace(req.GrantType) {
	case GrantTypePassword:
		return s.password(req.Username, req.Password)
	case GrantTypeRefreshToken:
		return s.refresh(req.RefreshToken)
	case "":
		return auth.TokenPair{}, fmt.Errorf("%w: missing grant_type", ErrInvalidRequest)
	default:
		return auth.TokenPair{}, fmt.Errorf("%w: %s", ErrUnsupportedGrantType, req.GrantType)
	}
}

func (s *GrantService) password(username, password string) (auth.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return auth.TokenPair{}, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}
	expected, ok := s.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 {
		s.logger.Warn("sign-in rejected", slog.String("username", username))
		return auth.TokenPair{}, fmt.Errorf("%w: invalid user credentials", ErrInvalidGrant)
	}
	pair, err := s.issuer.Issue(auth.Identity{
		Subject:  SubjectFor(username),
		Username: username,
		Roles:    []string{"user"},
	}, "")
	if err != nil {
		return auth.TokenPair{}, err
	}
	s.logger.Info("user signed in", slog.String("username", username))
	return pair, nil
}

// refresh keeps the session id of the refresh token so the login session survives renewal.
func (s *GrantService) refresh(refreshToken string) (auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return auth.TokenPair{}, fmt.Errorf("%w: missing refresh_token", ErrInvalidRequest)
	}
	claims, err := s.validator.ValidateUse(refreshToken, auth.TokenUseRefresh)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}
	if _, ok := s.users[claims.PreferredUsername]; !ok {
		return auth.TokenPair{}, fmt.Errorf("%w: account %q no longer exists", ErrInvalidGrant, claims.PreferredUsername)
	}
	pair, err := s.issuer.Issue(auth.Identity{
		Subject:    claims.Subject,
		Username:   claims.PreferredUsername,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Roles:      claims.Roles,
	}, claims.SessionID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	s.logger.Debug("session refreshed", slog.String("username", claims.PreferredUsername), slog.String("sessionId", claims.SessionID))
	return pair, nil
}
