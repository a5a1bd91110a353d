package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
)

func TestRequestDescriptorBuildIsRepeatable(t *testing.T) {
	rest := NewRESTClient("http://api.example.test/api/", 0, nil)
	desc := RequestDescriptor{
		Operation:   "CreateReview",
		Method:      http.MethodPost,
		Path:        "/restaurants/r1/reviews/",
		Body:        []byte(`{"rating":5}`),
		ContentType: "application/json",
		Authorize:   true,
	}

	for _, token := range []string{"first", "second"} {
		req, err := desc.Build(context.Background(), rest, token)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if got := req.URL.String(); got != "http://api.example.test/api/restaurants/r1/reviews/" {
			t.Fatalf("unexpected url %s", got)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer "+token {
			t.Fatalf("unexpected authorization %q", got)
		}
		body, _ := io.ReadAll(req.Body)
		if string(body) != `{"rating":5}` {
			t.Fatalf("body not rebuilt, got %q", body)
		}
	}
}

func TestRequestDescriptorSkipsAuthorization(t *testing.T) {
	rest := NewRESTClient("", 0, nil)
	anonymous := RequestDescriptor{Method: http.MethodGet, Path: "/photos/a.jpg"}
	req, err := anonymous.Build(context.Background(), rest, "secret")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("descriptor without Authorize must not carry a token")
	}
	if req.URL.String() != defaultBaseURL+"/photos/a.jpg" {
		t.Fatalf("unexpected url %s", req.URL)
	}

	authorized := RequestDescriptor{Method: http.MethodGet, Path: "/restaurants", Authorize: true}
	req, _ = authorized.Build(context.Background(), rest, "")
	if req.Header.Get("Authorization") != "" {
		t.Fatal("empty token must not produce a header")
	}
}

func TestRequestDescriptorWithQueryCopies(t *testing.T) {
	values := url.Values{"page": {"0"}}
	desc := RequestDescriptor{Path: "/restaurants"}.WithQuery(values)
	values.Set("page", "7")
	if desc.Query.Get("page") != "0" {
		t.Fatal("descriptor query must not alias caller values")
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{0: "error", 200: "2xx", 401: "4xx", 503: "5xx"}
	for status, expected := range cases {
		if got := statusClass(status); got != expected {
			t.Fatalf("statusClass(%d) = %q, want %q", status, got, expected)
		}
	}
}
