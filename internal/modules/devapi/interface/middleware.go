package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"mesaYaReviews/internal/modules/devapi/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/auth"
)

const principalKey = "devapi.principal"

// Authenticate validates the bearer token. With required=false an absent token passes
// anonymously, but a present one must still be valid.
func Authenticate(validator auth.TokenValidator, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := auth.ExtractBearerToken(c.Request())
			if token == "" {
				if required {
					return unauthorized(c, "Authentication required")
				}
				return next(c)
			}
			claims, err := validator.Validate(token)
			if err != nil {
				return unauthorized(c, "Invalid or expired token")
			}
			if claims.TokenUse != auth.TokenUseAccess {
				return unauthorized(c, "Access token required")
			}
			c.Set(principalKey, restaurants.User{
				ID:         claims.Subject,
				Username:   claims.PreferredUsername,
				GivenName:  claims.GivenName,
				FamilyName: claims.FamilyName,
			})
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
	return echo.NewHTTPError(http.StatusUnauthorized, message)
}

// Principal returns the authenticated user, or ErrUnauthenticated.
func Principal(c echo.Context) (restaurants.User, error) {
	user, ok := c.Get(principalKey).(restaurants.User)
	if !ok || user.ID == "" {
		return restaurants.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

// RateLimit allows perSecond sustained requests per client IP. Zero disables limiting.
func RateLimit(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := max(int(perSecond*2), 1)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}

// HTTPMetrics counts served requests by method, route and status.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_api_requests_total",
			Help: "Requests served by the development review API.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviews_api_request_duration_seconds",
			Help:    "Request latency of the development review API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware records each request after the error handler has written the response.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
