package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mesaYaReviews/internal/config"
	identity "mesaYaReviews/internal/modules/identity/infrastructure"
	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/application/usecase"
	"mesaYaReviews/internal/modules/restaurants/infrastructure"
)

// app lazily wires the gateway client so commands that never touch the API (help,
// logout) do not need a reachable identity provider or a valid session file.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	staticToken string
	jsonOutput  bool

	once     sync.Once
	initErr  error
	metrics  *prometheus.Registry
	sessions *identity.FileSessionStore
	oidc     *identity.OIDCTokenSource
	tokens   port.TokenSource
	api      *infrastructure.APIClient
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{cfg: cfg, logger: logger, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

func (a *app) init() error {
	a.once.Do(func() {
		a.initErr = a.wire()
	})
	return a.initErr
}

func (a *app) wire() error {
	httpClient, err := infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{
		Timeout:         a.cfg.REST.Timeout,
		WithCredentials: a.cfg.REST.WithCredentials,
		Tracing:         true,
	})
	if err != nil {
		return err
	}

	if a.staticToken != "" {
		a.tokens = identity.NewStaticTokenSource(a.staticToken)
	} else {
		a.sessions = identity.NewFileSessionStore(a.cfg.OIDC.SessionFile, a.logger)
		oidcClient := identity.NewOIDCClient(a.cfg.OIDC.Authority, a.cfg.OIDC.ClientID, a.cfg.OIDC.RedirectURL, httpClient, a.logger)
		a.oidc, err = identity.NewOIDCTokenSource(oidcClient, a.sessions, identity.PrintOpener(a.errOut), a.logger)
		if err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		a.tokens = a.oidc
	}

	a.metrics = prometheus.NewRegistry()
	rest := infrastructure.NewRESTClient(a.cfg.REST.BaseURL, a.cfg.REST.Timeout, httpClient)
	pipeline := infrastructure.NewPipeline(rest, a.tokens,
		infrastructure.WithLogger(a.logger),
		infrastructure.WithMetrics(infrastructure.NewMetrics(a.metrics)),
	)
	a.api = infrastructure.NewAPIClient(pipeline, a.logger)
	return nil
}

var errStaticToken = errors.New("a fixed --token is in use; sign-in is not available")

func (a *app) signInSource() (*identity.OIDCTokenSource, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	if a.oidc == nil {
		return nil, errStaticToken
	}
	return a.oidc, nil
}

func (a *app) client() (*infrastructure.APIClient, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	return a.api, nil
}

func (a *app) searchCoordinator() (*usecase.SearchCoordinator, error) {
	api, err := a.client()
	if err != nil {
		return nil, err
	}
	return usecase.NewSearchCoordinator(api, a.cfg.REST.PageSize, a.logger), nil
}

// logMetrics reports the client counters gathered during the command at debug level.
func (a *app) logMetrics() {
	if a.metrics == nil {
		return
	}
	families, err := a.metrics.Gather()
	if err != nil {
		a.logger.Debug("metrics unavailable", slog.Any("error", err))
		return
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			attrs := []any{slog.String("metric", family.GetName())}
			for _, label := range metric.GetLabel() {
				attrs = append(attrs, slog.String(label.GetName(), label.GetValue()))
			}
			if counter := metric.GetCounter(); counter != nil {
				attrs = append(attrs, slog.Float64("value", counter.GetValue()))
			}
			a.logger.Debug("client metric", attrs...)
		}
	}
}
