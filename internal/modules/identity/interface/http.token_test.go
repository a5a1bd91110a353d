package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesaYaReviews/internal/modules/identity/application/usecase"
	"mesaYaReviews/internal/modules/identity/infrastructure"
	"mesaYaReviews/internal/shared/auth"
)

const (
	testSecret = "idp-secret"
	testRealm  = "reviews"
	clientID   = "restaurant-review-app"
)

func newIdentityServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	e := echo.New()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	authority := srv.URL + "/realms/" + testRealm
	issuer := auth.NewIssuer(testSecret, authority, time.Minute, time.Hour)
	service := usecase.NewGrantService(map[string]string{"alice": "wonderland"}, clientID, issuer, auth.NewJWTValidator(testSecret, authority), nil)
	NewIdentityHandlers(testRealm, authority, service, nil).Register(e)
	return srv, authority
}

func TestOIDCClientAgainstDevelopmentProvider(t *testing.T) {
	srv, authority := newIdentityServer(t)
	client := infrastructure.NewOIDCClient(authority, clientID, "http://localhost:3000", srv.Client(), nil)
	ctx := context.Background()

	creds, err := client.PasswordGrant(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	assert.NotEmpty(t, creds.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Minute), creds.ExpiresAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.RefreshExpiresAt, 5*time.Second)

	claims, err := auth.NewJWTValidator(testSecret, authority).ValidateUse(creds.AccessToken, auth.TokenUseAccess)
	require.NoError(t, err)
	assert.Equal(t, usecase.SubjectFor("alice"), claims.Subject)

	renewed, err := client.RefreshGrant(ctx, creds.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, creds.AccessToken, renewed.AccessToken)

	_, err = client.PasswordGrant(ctx, "alice", "wrong")
	var grantErr *infrastructure.GrantError
	require.True(t, errors.As(err, &grantErr), "expected GrantError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, grantErr.Status)
	assert.Equal(t, "invalid_grant", grantErr.Code)
	assert.ErrorIs(t, err, infrastructure.ErrGrantRejected)
}

func TestTokenEndpointRejections(t *testing.T) {
	srv, authority := newIdentityServer(t)

	post := func(path string, form url.Values) (*http.Response, ErrorResponse) {
		resp, err := srv.Client().Post(path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	resp, body := post(authority+"/protocol/openid-connect/token", url.Values{"grant_type": {"password"}, "client_id": {"other"}, "username": {"alice"}, "password": {"wonderland"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_client", body.Error)
	assert.Equal(t, "no-store", resp.Header.Get(echo.HeaderCacheControl))

	resp, body = post(authority+"/protocol/openid-connect/token", url.Values{"grant_type": {"client_credentials"}, "client_id": {clientID}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_grant_type", body.Error)

	resp, body = post(srv.URL+"/realms/elsewhere/protocol/openid-connect/token", url.Values{"grant_type": {"password"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Realm does not exist", body.Error)
}

func TestDiscoveryAndAuthorizationPage(t *testing.T) {
	srv, authority := newIdentityServer(t)

	resp, err := srv.Client().Get(authority + "/.well-known/openid-configuration")
	require.NoError(t, err)
	defer resp.Body.Close()
	var discovery Discovery
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&discovery))
	assert.Equal(t, authority, discovery.Issuer)
	assert.Equal(t, authority+"/protocol/openid-connect/token", discovery.TokenEndpoint)

	client := infrastructure.NewOIDCClient(authority, clientID, "http://localhost:3000/callback", srv.Client(), nil)
	page, err := srv.Client().Get(client.AuthorizationURL("state-1"))
	require.NoError(t, err)
	defer page.Body.Close()
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.Header.Get(echo.HeaderContentType), echo.MIMETextHTML)
}
