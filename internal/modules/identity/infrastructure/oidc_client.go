package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mesaYaReviews/internal/modules/identity/domain"
	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

const (
	tokenEndpointPath         = "/protocol/openid-connect/token"
	authorizationEndpointPath = "/protocol/openid-connect/auth"
)

// ErrGrantRejected marks a token endpoint refusal, as opposed to a transport failure.
var ErrGrantRejected = errors.New("grant rejected")

// GrantError is the OAuth error body returned by the token endpoint.
type GrantError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *GrantError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token endpoint %d: %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("token endpoint %d: %s", e.Status, e.Code)
}

func (e *GrantError) Unwrap() error { return ErrGrantRejected }

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// OIDCClient speaks to an OpenID Connect authority of the form <base>/realms/<realm>.
type OIDCClient struct {
	authority   string
	clientID    string
	redirectURL string
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

func NewOIDCClient(authority, clientID, redirectURL string, client *http.Client, logger *slog.Logger) *OIDCClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OIDCClient{
		authority:   strings.TrimRight(strings.TrimSpace(authority), "/"),
		clientID:    strings.TrimSpace(clientID),
		redirectURL: strings.TrimSpace(redirectURL),
		client:      client,
		logger:      logging.OrDefault(logger),
		now:         time.Now,
	}
}

func (c *OIDCClient) TokenURL() string {
	return c.authority + tokenEndpointPath
}

// AuthorizationURL is the interactive sign-in page for state.
func (c *OIDCClient) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURL},
		"response_type": {"code"},
		"scope":         {"openid profile"},
		"state":         {state},
	}
	return c.authority + authorizationEndpointPath + "?" + params.Encode()
}

// PasswordGrant signs in with resource-owner credentials.
func (c *OIDCClient) PasswordGrant(ctx context.Context, username, password string) (*domain.Credentials, error) {
	creds, err := c.grant(ctx, url.Values{
		"grant_type": {"password"},
		"client_id":  {c.clientID},
		"username":   {username},
		"password":   {password},
		"scope":      {"openid profile"},
	})
	if err != nil {
		return nil, err
	}
	creds.Username = strings.TrimSpace(username)
	return creds, nil
}

// RefreshGrant exchanges refreshToken for a new credential pair.
func (c *OIDCClient) RefreshGrant(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	return c.grant(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
	})
}

func (c *OIDCClient) grant(ctx context.Context, form url.Values) (*domain.Credentials, error) {
	grantType := form.Get("grant_type")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issuedAt := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		grantErr := &GrantError{Status: resp.StatusCode}
		if json.Unmarshal(body, grantErr) != nil || grantErr.Code == "" {
			grantErr.Code = strings.TrimSpace(string(body))
		}
		c.logger.Warn("token grant rejected",
			slog.String("grantType", grantType),
			slog.Int("status", resp.StatusCode),
			slog.String("error", grantErr.Code),
		)
		return nil, grantErr
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	creds := &domain.Credentials{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		creds.ExpiresAt = issuedAt.Add(time.Duration(payload.ExpiresIn) * time.Second)
	} else if exp, err := auth.ExpiryFromToken(payload.AccessToken); err == nil {
		creds.ExpiresAt = exp
	}
	if payload.RefreshExpiresIn > 0 {
		creds.RefreshExpiresAt = issuedAt.Add(time.Duration(payload.RefreshExpiresIn) * time.Second)
	} else if exp, err := auth.ExpiryFromToken(payload.RefreshToken); err == nil {
		creds.RefreshExpiresAt = exp
	}
	c.logger.Debug("token grant succeeded",
		slog.String("grantType", grantType),
		logging.TokenAttr(creds.AccessToken),
		slog.Time("expiresAt", creds.ExpiresAt),
	)
	return creds, nil
}
