package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/shared/logging"
)

const (
	// DefaultRefreshMargin is how close to expiry a token is refreshed before sending.
	DefaultRefreshMargin = 60 * time.Second
	defaultRefreshWait   = 15 * time.Second

	triggerProactive = "proactive"
	triggerRecovery  = "recovery"
)

// Outcome is the final response of a pipeline round trip. Response is never nil.
type Outcome struct {
	Response *http.Response
	// Replayed is true when Response comes from the single replay after a 401.
	Replayed bool
	// RefreshErr is set when a 401 could not be recovered because the silent refresh failed.
	RefreshErr error
}

// Pipeline sends descriptors through the outbound authorization stage and the inbound
// 401 recovery stage. It is safe for concurrent use.
type Pipeline struct {
	rest        *RESTClient
	tokens      port.TokenSource
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	margin      time.Duration
	refreshWait time.Duration
	refreshes   singleflight.Group
}

type PipelineOption func(*Pipeline)

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logging.OrDefault(logger) }
}

func WithMetrics(metrics *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = metrics }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithRefreshMargin(margin time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if margin >= 0 {
			p.margin = margin
		}
	}
}

// WithRefreshWait bounds a shared refresh call independently of any single caller's context.
func WithRefreshWait(wait time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if wait > 0 {
			p.refreshWait = wait
		}
	}
}

func NewPipeline(rest *RESTClient, tokens port.TokenSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rest:        rest,
		tokens:      tokens,
		logger:      slog.Default(),
		now:         time.Now,
		margin:      DefaultRefreshMargin,
		refreshWait: defaultRefreshWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send performs the call described by desc. Transport failures are returned as errors
// wrapping port.ErrTransport; every HTTP status, including the final 401, is an Outcome.
func (p *Pipeline) Send(ctx context.Context, desc RequestDescriptor) (Outcome, error) {
	if !desc.Authorize {
		res, err := p.attempt(ctx, desc, "")
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Response: res}, nil
	}

	session := p.authorize(ctx, desc)
	res, err := p.attempt(ctx, desc, session.AccessToken)
	if err != nil {
		return Outcome{}, err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return Outcome{Response: res}, nil
	}
	return p.recover(ctx, desc, res)
}

// authorize returns the session to send with, refreshing first when the token is about
// to expire. A failed proactive refresh is logged and the current session is used.
func (p *Pipeline) authorize(ctx context.Context, desc RequestDescriptor) port.Session {
	session := p.tokens.Session()
	if !session.Authenticated {
		return port.Session{}
	}
	if session.ExpiringWithin(p.now(), p.margin) {
		p.logger.Debug("access token expiring, refreshing before send",
			slog.String("operation", desc.Operation),
			slog.Time("expiresAt", session.ExpiresAt),
		)
		if err := p.refresh(ctx, triggerProactive); err != nil {
			p.logger.Warn("proactive token refresh failed",
				slog.String("operation", desc.Operation),
				slog.Any("error", err),
			)
		}
		session = p.tokens.Session()
		if !session.Authenticated {
			return port.Session{}
		}
	}
	return session
}

func (p *Pipeline) recover(ctx context.Context, desc RequestDescriptor, unauthorized *http.Response) (Outcome, error) {
	p.logger.Info("request unauthorized, attempting silent refresh",
		slog.String("operation", desc.Operation),
		slog.String("path", desc.Path),
	)
	if err := p.refresh(ctx, triggerRecovery); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			drain(unauthorized)
			p.logger.Debug("caller gave up during silent refresh",
				slog.String("operation", desc.Operation),
				slog.Any("error", err),
			)
			return Outcome{}, fmt.Errorf("%w: %s %s: %w", port.ErrTransport, desc.Method, desc.Path, err)
		}
		p.logger.Warn("silent refresh failed, redirecting to sign-in",
			slog.String("operation", desc.Operation),
			slog.Any("error", err),
		)
		p.metrics.recordRedirect()
		if redirectErr := p.tokens.SignInRedirect(ctx); redirectErr != nil {
			p.logger.Error("sign-in redirect failed", slog.Any("error", redirectErr))
		}
		return Outcome{Response: unauthorized, RefreshErr: err}, nil
	}

	drain(unauthorized)
	session := p.tokens.Session()
	res, err := p.attempt(ctx, desc, session.AccessToken)
	if err != nil {
		return Outcome{}, err
	}
	p.metrics.recordReplay(res.StatusCode)
	p.logger.Debug("request replayed",
		slog.String("operation", desc.Operation),
		slog.Int("status", res.StatusCode),
	)
	return Outcome{Response: res, Replayed: true}, nil
}

// refresh runs the token source's silent refresh, sharing one in-flight call between
// concurrent callers. The shared call outlives a cancelled caller up to refreshWait.
func (p *Pipeline) refresh(ctx context.Context, trigger string) error {
	ch := p.refreshes.DoChan("refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.refreshWait)
		defer cancel()
		return nil, p.tokens.RefreshSilent(refreshCtx)
	})
	select {
	case <-ctx.Done():
		p.metrics.recordRefreshAbandoned(trigger)
		return ctx.Err()
	case result := <-ch:
		p.metrics.recordRefresh(trigger, result.Err)
		if result.Shared {
			p.logger.Debug("joined in-flight token refresh", slog.String("trigger", trigger))
		}
		return result.Err
	}
}

func (p *Pipeline) attempt(ctx context.Context, desc RequestDescriptor, token string) (*http.Response, error) {
	req, err := desc.Build(ctx, p.rest, token)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", desc.Operation, err)
	}
	p.logger.Debug("api request",
		slog.String("operation", desc.Operation),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		logging.TokenAttr(token),
	)
	res, err := p.rest.Do(req)
	if err != nil {
		p.metrics.recordRequest(desc.Operation, 0)
		p.logger.Error("api request error",
			slog.String("operation", desc.Operation),
			slog.String("path", desc.Path),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %s %s: %w", port.ErrTransport, desc.Method, desc.Path, err)
	}
	p.metrics.recordRequest(desc.Operation, res.StatusCode)
	p.logger.Debug("api response",
		slog.String("operation", desc.Operation),
		slog.Int("status", res.StatusCode),
	)
	return res, nil
}

func drain(res *http.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	_ = res.Body.Close()
}
