package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerValue formats the Authorization header value for token, or "" when token is blank.
func BearerValue(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	return bearerPrefix + trimmed
}

// ExtractBearerToken extracts the JWT token from the Authorization header.
// It handles the "Bearer " prefix and returns an empty string if no token is present.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	return ExtractBearerTokenFromHeader(r.Header.Get("Authorization"))
}

// ExtractBearerTokenFromHeader extracts the JWT token from an Authorization header value.
// The scheme is matched case-insensitively.
func ExtractBearerTokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// ExtractTokenFromQuery extracts a token from a URL query parameter.
func ExtractTokenFromQuery(r *http.Request, paramName string) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(paramName))
}

// ExtractToken attempts to extract a token from the Authorization header first and then
// from the query parameter (default "token"). Browsers cannot set headers on websocket
// upgrades, hence the fallback.
func ExtractToken(r *http.Request, queryParam string) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if queryParam == "" {
		queryParam = "token"
	}
	return ExtractTokenFromQuery(r, queryParam)
}
