package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"mesaYaReviews/internal/shared/auth"
)

const (
	testSecret = "grant-secret"
	testIssuer = "http://idp.test/realms/reviews"
)

func newTestService() *GrantService {
	issuer := auth.NewIssuer(testSecret, testIssuer, time.Minute, time.Hour)
	validator := auth.NewJWTValidator(testSecret, testIssuer)
	return NewGrantService(map[string]string{"alice": "wonderland"}, "cli", issuer, validator, nil)
}

func TestPasswordGrantIssuesStableSubject(t *testing.T) {
	svc := newTestService()
	validator := auth.NewJWTValidator(testSecret, testIssuer)

	var subjects []string
	for range 2 {
		pair, err := svc.Exchange(context.Background(), GrantRequest{GrantType: GrantTypePassword, ClientID: "cli", Username: " alice ", Password: "wonderland"})
		if err != nil {
			t.Fatalf("password grant: %v", err)
		}
		claims, err := validator.ValidateUse(pair.Access.Value, auth.TokenUseAccess)
		if err != nil {
			t.Fatalf("validate access token: %v", err)
		}
		if claims.PreferredUsername != "alice" {
			t.Fatalf("unexpected username %q", claims.PreferredUsername)
		}
		subjects = append(subjects, claims.Subject)
	}
	if subjects[0] != subjects[1] || subjects[0] != SubjectFor("alice") {
		t.Fatalf("subject should be stable, got %v", subjects)
	}
}

func TestRefreshGrantKeepsSession(t *testing.T) {
	svc := newTestService()
	validator := auth.NewJWTValidator(testSecret, testIssuer)
	ctx := context.Background()

	first, err := svc.Exchange(ctx, GrantRequest{GrantType: GrantTypePassword, ClientID: "cli", Username: "alice", Password: "wonderland"})
	if err != nil {
		t.Fatalf("password grant: %v", err)
	}
	before, err := validator.Validate(first.Refresh.Value)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}

	renewed, err := svc.Exchange(ctx, GrantRequest{GrantType: GrantTypeRefreshToken, ClientID: "cli", RefreshToken: first.Refresh.Value})
	if err != nil {
		t.Fatalf("refresh grant: %v", err)
	}
	after, err := validator.Validate(renewed.Access.Value)
	if err != nil {
		t.Fatalf("validate renewed token: %v", err)
	}
	if after.SessionID != before.SessionID || after.Subject != before.Subject {
		t.Fatalf("refresh changed identity: before %+v after %+v", before, after)
	}

	if _, err := svc.Exchange(ctx, GrantRequest{GrantType: GrantTypeRefreshToken, ClientID: "cli", RefreshToken: first.Access.Value}); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestGrantRejections(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name string
		req  GrantRequest
		want error
	}{
		{"wrong password", GrantRequest{GrantType: GrantTypePassword, ClientID: "cli", Username: "alice", Password: "nope"}, ErrInvalidGrant},
		{"unknown user", GrantRequest{GrantType: GrantTypePassword, ClientID: "cli", Username: "bob", Password: "wonderland"}, ErrInvalidGrant},
		{"missing password", GrantRequest{GrantType: GrantTypePassword, ClientID: "cli", Username: "alice"}, ErrInvalidRequest},
		{"wrong client", GrantRequest{GrantType: GrantTypePassword, ClientID: "web", Username: "alice", Password: "wonderland"}, ErrInvalidClient},
		{"missing grant", GrantRequest{ClientID: "cli"}, ErrInvalidRequest},
		{"unsupported grant", GrantRequest{GrantType: "client_credentials", ClientID: "cli"}, ErrUnsupportedGrantType},
		{"garbage refresh", GrantRequest{GrantType: GrantTypeRefreshToken, ClientID: "cli", RefreshToken: "garbage"}, ErrInvalidGrant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Exchange(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
