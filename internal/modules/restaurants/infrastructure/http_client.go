package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	"mesaYaReviews/internal/shared/auth"
)

const defaultBaseURL = "http://localhost:8080/api"

// HTTPClientOptions configures the transport shared by every API call.
type HTTPClientOptions struct {
	Timeout         time.Duration
	WithCredentials bool
	Tracing         bool
}

// NewHTTPClient builds the client used by RESTClient. WithCredentials installs a cookie jar
// so credential cookies set by the API travel with later requests.
func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	client := &http.Client{Timeout: timeoutOrDefault(opts.Timeout)}
	if opts.WithCredentials {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}
	if opts.Tracing {
		client.Transport = otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "HTTP " + r.Method + " " + r.URL.Path
			}),
		)
	}
	return client, nil
}

// RESTClient wraps http.Client with base URL handling to avoid duplicating boilerplate in adapters.
type RESTClient struct {
	baseURL string
	client  *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration, client *http.Client) *RESTClient {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(timeout)}
	} else if timeout > 0 {
		client.Timeout = timeout
	}
	return &RESTClient{baseURL: trimmed, client: client}
}

// BaseURL returns the normalized API root.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a request for endpoint. A trailing slash on endpoint is preserved.
func (c *RESTClient) NewRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if body == nil {
		return http.NewRequestWithContext(ctx, method, target, nil)
	}
	return http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
}

func (c *RESTClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value <= 0 {
		return 10 * time.Second
	}
	return value
}

// RequestDescriptor is an immutable description of one API call. Every attempt derives a
// fresh *http.Request from it, so a descriptor can be replayed after recovery.
type RequestDescriptor struct {
	Operation   string
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Accept      string
	// Authorize attaches the session's bearer token and enables 401 recovery.
	Authorize bool
}

// Build derives the request for one attempt. An empty token sends no Authorization header.
func (d RequestDescriptor) Build(ctx context.Context, rest *RESTClient, token string) (*http.Request, error) {
	req, err := rest.NewRequest(ctx, d.Method, d.Path, d.Body)
	if err != nil {
		return nil, err
	}
	if len(d.Query) > 0 {
		req.URL.RawQuery = d.Query.Encode()
	}
	accept := d.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if d.Body != nil && d.ContentType != "" {
		req.Header.Set("Content-Type", d.ContentType)
	}
	if d.Authorize {
		if value := auth.BearerValue(token); value != "" {
			req.Header.Set("Authorization", value)
		}
	}
	return req, nil
}

// WithQuery returns a copy of d carrying values; the receiver is left untouched.
func (d RequestDescriptor) WithQuery(values url.Values) RequestDescriptor {
	copied := d
	copied.Query = make(url.Values, len(values))
	for key, vals := range values {
		copied.Query[key] = append([]string(nil), vals...)
	}
	return copied
}
