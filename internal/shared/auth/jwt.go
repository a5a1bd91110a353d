package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongUse     = errors.New("token used for wrong purpose")
)

const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims mirrors the identity provider's token payload. Review authorship is derived from
// the profile claims the same way the review API maps a JWT into a user record.
type Claims struct {
	SessionID         string   `json:"sid"`
	TokenUse          string   `json:"typ"`
	Roles             []string `json:"roles,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

type JWTValidator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
	now       func() time.Time
}

// NewJWTValidator creates a validator that uses HMAC (HS256) with the provided secret.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(strings.TrimSpace(secret)), issuer: strings.TrimSpace(issuer), now: time.Now}
}

// NewJWTValidatorWithPublicKey creates a validator that supports RS256 with RSA public key.
// If publicKeyPEM is provided, RS256 is used. Otherwise, falls back to HMAC with secret.
func NewJWTValidatorWithPublicKey(secret, issuer, publicKeyPEM string) *JWTValidator {
	v := NewJWTValidator(secret, issuer)
	if publicKeyPEM != "" {
		if key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM)); err == nil {
			v.publicKey = key
		}
	}
	return v
}

func (v *JWTValidator) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	if v.publicKey == nil && len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt key not configured (neither public key nor secret)", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second), jwt.WithTimeFunc(v.now)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v, expected RS256", t.Header["alg"])
			}
			return v.publicKey, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	if claims.RegisteredClaims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.SessionID == "" {
		claims.SessionID = claims.RegisteredClaims.ID
	}
	if claims.TokenUse == "" {
		claims.TokenUse = TokenUseAccess
	}

	return claims, nil
}

// ValidateUse validates token and additionally requires the given token use.
func (v *JWTValidator) ValidateUse(token, use string) (*Claims, error) {
	claims, err := v.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("%w: got %q want %q", ErrWrongUse, claims.TokenUse, use)
	}
	return claims, nil
}

// Identity is the profile embedded into issued tokens.
type Identity struct {
	Subject    string
	Username   string
	GivenName  string
	FamilyName string
	Roles      []string
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is what a successful grant hands back to the caller.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Issuer signs HS256 access and refresh tokens for the development identity provider.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * time.Minute
	}
	return &Issuer{
		secret:     []byte(strings.TrimSpace(secret)),
		issuer:     strings.TrimSpace(issuer),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue mints a new pair. sessionID is carried across refreshes so a login session keeps its id.
func (i *Issuer) Issue(identity Identity, sessionID string) (TokenPair, error) {
	if strings.TrimSpace(identity.Subject) == "" {
		return TokenPair{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if len(i.secret) == 0 {
		return TokenPair{}, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	now := i.now()

	access, err := i.sign(identity, sessionID, TokenUseAccess, now, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(identity, sessionID, TokenUseRefresh, now, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(identity Identity, sessionID, use string, now time.Time, ttl time.Duration) (IssuedToken, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		SessionID:         sessionID,
		TokenUse:          use,
		Roles:             identity.Roles,
		PreferredUsername: identity.Username,
		GivenName:         identity.GivenName,
		FamilyName:        identity.FamilyName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", use, err)
	}
	return IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// ExpiryFromToken reads the exp claim without verifying the signature. Clients use it to
// schedule proactive refreshes for tokens they cannot verify themselves.
func ExpiryFromToken(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, ErrMissingToken
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
