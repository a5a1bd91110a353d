package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"mesaYaReviews/internal/modules/devapi/domain"
	"mesaYaReviews/internal/shared/httputil"
	"mesaYaReviews/internal/shared/logging"
)

// NewErrorMapper maps catalog errors to the review API's statuses and messages.
func NewErrorMapper() *httputil.ErrorMapper {
	return httputil.NewErrorMapper().
		WithMapping(domain.ErrValidation, http.StatusBadRequest, "").
		WithMapping(domain.ErrRestaurantNotFound, http.StatusNotFound, "The specified restaurant was not found").
		WithMapping(domain.ErrReviewNotFound, http.StatusNotFound, "The specified review was not found").
		WithMapping(domain.ErrPhotoNotFound, http.StatusNotFound, "The specified photo was not found").
		WithMapping(domain.ErrReviewNotAllowed, http.StatusBadRequest, "The specified review could not be created or updated.").
		WithMapping(domain.ErrUnauthenticated, http.StatusUnauthorized, "Authentication required").
		WithMapping(domain.ErrStorage, http.StatusInternalServerError, "Unable to save or retrieve resources at this time")
}

// ErrorHandler writes every failure as {"status": ..., "message": ...}.
func ErrorHandler(mapper *httputil.ErrorMapper, logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logging.OrDefault(logger)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		info := httpErrorInfo(mapper, err)
		if info.Status >= http.StatusInternalServerError {
			logger.Error("request failed", slog.String("method", c.Request().Method), slog.String("path", c.Path()), slog.Int("status", info.Status), slog.Any("error", err))
		} else {
			logger.Debug("request rejected", slog.String("method", c.Request().Method), slog.String("path", c.Path()), slog.Int("status", info.Status), slog.Any("error", err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(info.Status)
			return
		}
		_ = c.JSON(info.Status, info.Body())
	}
}

func httpErrorInfo(mapper *httputil.ErrorMapper, err error) httputil.HTTPErrorInfo {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := fmt.Sprint(he.Message)
		if he.Internal != nil && errors.Is(he.Internal, domain.ErrValidation) {
			message = he.Internal.Error()
		}
		return httputil.HTTPErrorInfo{Status: he.Code, Message: message}
	}
	return mapper.Map(err)
}
