package transport

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"mesaYaReviews/internal/modules/identity/application/usecase"
	"mesaYaReviews/internal/shared/logging"
)

// TokenResponse is the OAuth token endpoint success body.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	SessionState     string `json:"session_state,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

// ErrorResponse is the OAuth token endpoint failure body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Discovery is the subset of the OpenID provider metadata clients read.
type Discovery struct {
	Issuer                string   `json:"issuer"`
	TokenEndpoint         string   `json:"token_endpoint"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	GrantTypesSupported   []string `json:"grant_types_supported"`
}

type IdentityHandlers struct {
	realm   string
	issuer  string
	service *usecase.GrantService
	logger  *slog.Logger
	now     func() time.Time
}

// NewIdentityHandlers serves realm under /realms/<realm>. issuer is the public authority URL.
func NewIdentityHandlers(realm, issuer string, service *usecase.GrantService, logger *slog.Logger) *IdentityHandlers {
	return &IdentityHandlers{
		realm:   strings.TrimSpace(realm),
		issuer:  strings.TrimRight(strings.TrimSpace(issuer), "/"),
		service: service,
		logger:  logging.OrDefault(logger),
		now:     time.Now,
	}
}

func (h *IdentityHandlers) Register(e *echo.Echo) {
	g := e.Group("/realms/:realm", h.requireRealm)
	g.GET("/.well-known/openid-configuration", h.discovery)
	g.POST("/protocol/openid-connect/token", h.token)
	g.GET("/protocol/openid-connect/auth", h.authorize)
}

func (h *IdentityHandlers) requireRealm(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Param("realm") != h.realm {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Realm does not exist"})
		}
		return next(c)
	}
}

func (h *IdentityHandlers) discovery(c echo.Context) error {
	return c.JSON(http.StatusOK, Discovery{
		Issuer:                h.issuer,
		TokenEndpoint:         h.issuer + "/protocol/openid-connect/token",
		AuthorizationEndpoint: h.issuer + "/protocol/openid-connect/auth",
		GrantTypesSupported:   []string{usecase.GrantTypePassword, usecase.GrantTypeRefreshToken},
	})
}

func (h *IdentityHandlers) token(c echo.Context) error {
	req := usecase.GrantRequest{
		GrantType:    c.FormValue("grant_type"),
		ClientID:     c.FormValue("client_id"),
		Username:     c.FormValue("username"),
		Password:     c.FormValue("password"),
		RefreshToken: c.FormValue("refresh_token"),
	}
	pair, err := h.service.Exchange(c.Request().Context(), req)
	if err != nil {
		status, body := grantFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("token grant failed", slog.String("grantType", req.GrantType), slog.Any("error", err))
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return c.JSON(status, body)
	}

	now := h.now()
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken:      pair.Access.Value,
		TokenType:        "Bearer",
		ExpiresIn:        secondsUntil(now, pair.Access.ExpiresAt),
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresIn: secondsUntil(now, pair.Refresh.ExpiresAt),
		Scope:            "openid profile",
	})
}

func grantFailure(err error) (int, ErrorResponse) {
	for _, known := range []struct {
		err    error
		status int
	}{
		{usecase.ErrInvalidClient, http.StatusUnauthorized},
		{usecase.ErrInvalidGrant, http.StatusBadRequest},
		{usecase.ErrInvalidRequest, http.StatusBadRequest},
		{usecase.ErrUnsupportedGrantType, http.StatusBadRequest},
	} {
		if errors.Is(err, known.err) {
			description := strings.TrimSpace(strings.TrimPrefix(err.Error(), known.err.Error()+":"))
			return known.status, ErrorResponse{Error: known.err.Error(), ErrorDescription: description}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "server_error"}
}

func secondsUntil(now, at time.Time) int {
	return max(int(at.Sub(now).Round(time.Second)/time.Second), 0)
}

// authorize renders a landing page; the development provider only supports direct grants.
func (h *IdentityHandlers) authorize(c echo.Context) error {
	redirect := "/"
	if parsed, err := url.Parse(c.QueryParam("redirect_uri")); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		redirect = parsed.String()
	}
	page := fmt.Sprintf(`<!doctype html>
<html><head><title>Sign in</title></head>
<body><h1>Sign in to %s</h1>
<p>This development identity provider accepts password grants only. Run <code>restaurants login</code> and return to <a href="%s">the application</a>.</p>
</body></html>`, html.EscapeString(h.realm), html.EscapeString(redirect))
	return c.HTML(http.StatusOK, page)
}
