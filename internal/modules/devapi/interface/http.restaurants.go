package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"mesaYaReviews/internal/modules/devapi/application/usecase"
	"mesaYaReviews/internal/modules/devapi/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/auth"
	"mesaYaReviews/internal/shared/logging"
)

// Handlers serves the review API.
type Handlers struct {
	catalog *usecase.Catalog
	photos  *usecase.PhotoService
	logger  *slog.Logger
}

func NewHandlers(catalog *usecase.Catalog, photos *usecase.PhotoService, logger *slog.Logger) *Handlers {
	return &Handlers{catalog: catalog, photos: photos, logger: logging.OrDefault(logger)}
}

// Register mounts the API on g. Reads are public; writes require a valid access token.
func (h *Handlers) Register(g *echo.Group, validator auth.TokenValidator) {
	optional := Authenticate(validator, false)
	required := Authenticate(validator, true)

	g.GET("/restaurants", h.searchRestaurants, optional)
	g.POST("/restaurants", h.createRestaurant, required)
	g.GET("/restaurants/:restaurantId", h.getRestaurant, optional)
	g.PUT("/restaurants/:restaurantId", h.updateRestaurant, required)
	g.DELETE("/restaurants/:restaurantId", h.deleteRestaurant, required)

	g.GET("/restaurants/:restaurantId/reviews", h.listReviews, optional)
	g.POST("/restaurants/:restaurantId/reviews", h.createReview, required)
	g.POST("/restaurants/:restaurantId/reviews/", h.createReview, required)
	g.GET("/restaurants/:restaurantId/reviews/:reviewId", h.getReview, optional)
	g.PUT("/restaurants/:restaurantId/reviews/:reviewId", h.updateReview, required)
	g.DELETE("/restaurants/:restaurantId/reviews/:reviewId", h.deleteReview, required)

	g.POST("/photos", h.uploadPhoto, required)
	g.GET("/photos/:photoId", h.getPhoto, optional)
}

func (h *Handlers) searchRestaurants(c echo.Context) error {
	var errs domain.FieldErrors
	criteria := usecase.SearchCriteria{
		Query:     strings.TrimSpace(c.QueryParam("q")),
		MinRating: floatParam(c, "minRating", &errs),
		Latitude:  floatParam(c, "latitude", &errs),
		Longitude: floatParam(c, "longitude", &errs),
		Radius:    floatParam(c, "radius", &errs),
		Page:      intParam(c, "page", 0, &errs),
		Size:      intParam(c, "size", restaurants.DefaultPageSize, &errs),
	}
	if len(errs) > 0 {
		return errs
	}
	page, err := h.catalog.SearchRestaurants(c.Request().Context(), criteria)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handlers) createRestaurant(c echo.Context) error {
	var req restaurants.RestaurantRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	created, err := h.catalog.CreateRestaurant(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, created)
}

func (h *Handlers) getRestaurant(c echo.Context) error {
	restaurant, err := h.catalog.GetRestaurant(c.Request().Context(), c.Param("restaurantId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, restaurant)
}

func (h *Handlers) updateRestaurant(c echo.Context) error {
	var req restaurants.RestaurantRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	updated, err := h.catalog.UpdateRestaurant(c.Request().Context(), c.Param("restaurantId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handlers) deleteRestaurant(c echo.Context) error {
	if err := h.catalog.DeleteRestaurant(c.Request().Context(), c.Param("restaurantId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) listReviews(c echo.Context) error {
	var errs domain.FieldErrors
	query := usecase.ReviewQuery{
		Sort: restaurants.ReviewSort(strings.TrimSpace(c.QueryParam("sort"))),
		Page: intParam(c, "page", 0, &errs),
		Size: intParam(c, "size", restaurants.DefaultPageSize, &errs),
	}
	if len(errs) > 0 {
		return errs
	}
	page, err := h.catalog.ListReviews(c.Request().Context(), c.Param("restaurantId"), query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handlers) createReview(c echo.Context) error {
	author, err := Principal(c)
	if err != nil {
		return err
	}
	var req restaurants.ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	review, err := h.catalog.CreateReview(c.Request().Context(), author, c.Param("restaurantId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

// getReview answers 204 for an unknown review of an existing restaurant.
func (h *Handlers) getReview(c echo.Context) error {
	review, err := h.catalog.GetReview(c.Request().Context(), c.Param("restaurantId"), c.Param("reviewId"))
	if errors.Is(err, domain.ErrReviewNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handlers) updateReview(c echo.Context) error {
	author, err := Principal(c)
	if err != nil {
		return err
	}
	var req restaurants.ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	review, err := h.catalog.UpdateReview(c.Request().Context(), author, c.Param("restaurantId"), c.Param("reviewId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handlers) deleteReview(c echo.Context) error {
	if err := h.catalog.DeleteReview(c.Request().Context(), c.Param("restaurantId"), c.Param("reviewId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) uploadPhoto(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return domain.FieldErrors{{Field: "file", Message: "A multipart file field named file is required"}}
	}
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, usecase.MaxPhotoSize+1))
	if err != nil {
		return err
	}
	photo, err := h.photos.Upload(c.Request().Context(), usecase.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
		Data:        data,
		Caption:     c.FormValue("caption"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photo)
}

func (h *Handlers) getPhoto(c echo.Context) error {
	photo, err := h.photos.Load(c.Request().Context(), c.Param("photoId"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline")
	return c.Blob(http.StatusOK, photo.ContentType, photo.Data)
}

func bindJSON(c echo.Context, target any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, target); err != nil {
		return domain.FieldErrors{{Field: "body", Message: "Malformed JSON request body"}}
	}
	return nil
}

func floatParam(c echo.Context, name string, errs *domain.FieldErrors) *float64 {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, domain.FieldError{Field: name, Message: "must be a number"})
		return nil
	}
	return &value
}

func intParam(c echo.Context, name string, fallback int, errs *domain.FieldErrors) int {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, domain.FieldError{Field: name, Message: "must be an integer"})
		return fallback
	}
	return value
}
