package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("KEYCLOAK_URL", "http://idp.local/")
	t.Setenv("KEYCLOAK_REALM", "reviews")
	t.Setenv("OIDC_AUTHORITY", "")
	for _, key := range []string{"API_TIMEOUT", "SEARCH_PAGE_SIZE", "REST_WITH_CREDENTIALS", "JWT_ISSUER", "DEV_USERS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.REST.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("unexpected base url %s", cfg.REST.BaseURL)
	}
	if cfg.REST.PageSize != 8 {
		t.Fatalf("expected page size 8, got %d", cfg.REST.PageSize)
	}
	if !cfg.REST.WithCredentials {
		t.Fatal("expected credentials to be sent by default")
	}
	if cfg.REST.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.REST.Timeout)
	}
	if cfg.OIDC.Authority != "http://idp.local/realms/reviews" {
		t.Fatalf("unexpected authority %s", cfg.OIDC.Authority)
	}
	if cfg.OIDC.Realm() != "reviews" {
		t.Fatalf("unexpected realm %q", cfg.OIDC.Realm())
	}
	if cfg.Security.Issuer != cfg.OIDC.Authority {
		t.Fatalf("issuer should default to authority, got %s", cfg.Security.Issuer)
	}
	if cfg.Security.Users["reviewer"] != "reviewer" {
		t.Fatalf("unexpected dev users %#v", cfg.Security.Users)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://reviews.example.com/api/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("SEARCH_PAGE_SIZE", "12")
	t.Setenv("REST_WITH_CREDENTIALS", "false")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("DEV_USERS", "alice:pw1,bob:pw2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.REST.BaseURL != "https://reviews.example.com/api" {
		t.Fatalf("trailing slash should be trimmed, got %s", cfg.REST.BaseURL)
	}
	if cfg.REST.Timeout != 3*time.Second || cfg.REST.PageSize != 12 || cfg.REST.WithCredentials {
		t.Fatalf("unexpected rest config %#v", cfg.REST)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %#v", cfg.Kafka.Brokers)
	}
	if len(cfg.Security.Users) != 2 || cfg.Security.Users["bob"] != "pw2" {
		t.Fatalf("unexpected users %#v", cfg.Security.Users)
	}
}

func TestLoadCollectsProblems(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")
	t.Setenv("SEARCH_PAGE_SIZE", "0")
	t.Setenv("DEV_USERS", "nopassword")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, fragment := range []string{"API_TIMEOUT", "SEARCH_PAGE_SIZE", "DEV_USERS"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %s in error %q", fragment, err)
		}
	}
}

func TestRequireServerSecret(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireServerSecret(); err == nil {
		t.Fatal("expected missing secret error")
	}
	cfg.Security.JWTSecret = "s3cret"
	if err := cfg.RequireServerSecret(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOIDCRealm(t *testing.T) {
	cases := map[string]string{
		"http://idp/realms/reviews":         "reviews",
		"http://idp/realms/reviews/account": "reviews",
		"http://idp/auth":                   "",
	}
	for authority, want := range cases {
		if got := (OIDCConfig{Authority: authority}).Realm(); got != want {
			t.Fatalf("Realm(%q) = %q, want %q", authority, got, want)
		}
	}
}
