package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/httputil"
	"mesaYaReviews/internal/shared/logging"
)

const maxPhotoBytes = 20 << 20

// APIClient implements RestaurantAPI over the request pipeline. Each operation is a fixed
// mapping to a method, path, parameters and response decoder.
type APIClient struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewAPIClient(pipeline *Pipeline, logger *slog.Logger) *APIClient {
	return &APIClient{pipeline: pipeline, logger: logging.OrDefault(logger)}
}

func (c *APIClient) SearchRestaurants(ctx context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
	const op = "SearchRestaurants"
	if err := params.Validate(); err != nil {
		return domain.Page[domain.RestaurantSummary]{}, fmt.Errorf("%s: %w", op, err)
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodGet, Path: restaurantsPath, Authorize: true}.WithQuery(params.Values())
	return fetchJSON(ctx, c, desc, func(page domain.Page[domain.RestaurantSummary]) error {
		return page.Validate(domain.RestaurantSummary.Validate)
	})
}

func (c *APIClient) GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error) {
	const op = "GetRestaurant"
	path, err := restaurantPath(id)
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("%s: %w", op, err)
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodGet, Path: path, Authorize: true}
	return fetchJSON(ctx, c, desc, domain.Restaurant.Validate)
}

func (c *APIClient) CreateRestaurant(ctx context.Context, req domain.CreateRestaurantRequest) (domain.Restaurant, error) {
	const op = "CreateRestaurant"
	body, err := encodeJSON(op, normalizeRestaurantRequest(req))
	if err != nil {
		return domain.Restaurant{}, err
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodPost, Path: restaurantsPath, Body: body, ContentType: "application/json", Authorize: true}
	return fetchJSON(ctx, c, desc, domain.Restaurant.Validate)
}

func (c *APIClient) UpdateRestaurant(ctx context.Context, id string, req domain.UpdateRestaurantRequest) error {
	const op = "UpdateRestaurant"
	path, err := restaurantPath(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := encodeJSON(op, normalizeRestaurantRequest(req))
	if err != nil {
		return err
	}
	return c.execute(ctx, RequestDescriptor{Operation: op, Method: http.MethodPut, Path: path, Body: body, ContentType: "application/json", Authorize: true})
}

func (c *APIClient) DeleteRestaurant(ctx context.Context, id string) error {
	const op = "DeleteRestaurant"
	path, err := restaurantPath(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.execute(ctx, RequestDescriptor{Operation: op, Method: http.MethodDelete, Path: path, Authorize: true})
}

func (c *APIClient) ListReviews(ctx context.Context, restaurantID string, params domain.ReviewListParams) (domain.Page[domain.Review], error) {
	const op = "ListReviews"
	path, err := reviewsPath(restaurantID, false)
	if err != nil {
		return domain.Page[domain.Review]{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := domain.ParseReviewSort(string(params.Sort)); err != nil {
		return domain.Page[domain.Review]{}, fmt.Errorf("%s: %w", op, err)
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodGet, Path: path, Authorize: true}.WithQuery(params.Values())
	return fetchJSON(ctx, c, desc, func(page domain.Page[domain.Review]) error {
		return page.Validate(domain.Review.Validate)
	})
}

func (c *APIClient) GetReview(ctx context.Context, restaurantID, reviewID string) (domain.Review, error) {
	const op = "GetReview"
	path, err := reviewPath(restaurantID, reviewID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("%s: %w", op, err)
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodGet, Path: path, Authorize: true}
	res, err := c.exchange(ctx, desc)
	if err != nil {
		return domain.Review{}, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNoContent {
		return domain.Review{}, fmt.Errorf("%s: %w", op, port.ErrReviewNotFound)
	}
	review, err := decodeJSON(op, res.Body, domain.Review.Validate)
	if err != nil {
		c.logger.Warn("api response rejected", slog.String("operation", op), slog.String("path", path), slog.Any("error", err))
	}
	return review, err
}

func (c *APIClient) CreateReview(ctx context.Context, restaurantID string, req domain.CreateReviewRequest) (domain.Review, error) {
	const op = "CreateReview"
	path, err := reviewsPath(restaurantID, true)
	if err != nil {
		return domain.Review{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := encodeJSON(op, normalizeReviewRequest(req))
	if err != nil {
		return domain.Review{}, err
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodPost, Path: path, Body: body, ContentType: "application/json", Authorize: true}
	return fetchJSON(ctx, c, desc, domain.Review.Validate)
}

func (c *APIClient) UpdateReview(ctx context.Context, restaurantID, reviewID string, req domain.UpdateReviewRequest) error {
	const op = "UpdateReview"
	path, err := reviewPath(restaurantID, reviewID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := encodeJSON(op, normalizeReviewRequest(req))
	if err != nil {
		return err
	}
	return c.execute(ctx, RequestDescriptor{Operation: op, Method: http.MethodPut, Path: path, Body: body, ContentType: "application/json", Authorize: true})
}

func (c *APIClient) DeleteReview(ctx context.Context, restaurantID, reviewID string) error {
	const op = "DeleteReview"
	path, err := reviewPath(restaurantID, reviewID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.execute(ctx, RequestDescriptor{Operation: op, Method: http.MethodDelete, Path: path, Authorize: true})
}

func (c *APIClient) UploadPhoto(ctx context.Context, upload port.PhotoUpload) (domain.Photo, error) {
	const op = "UploadPhoto"
	body, contentType, err := encodePhotoUpload(upload)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("%s: %w", op, err)
	}
	desc := RequestDescriptor{Operation: op, Method: http.MethodPost, Path: photosPath, Body: body, ContentType: contentType, Authorize: true}
	return fetchJSON(ctx, c, desc, domain.Photo.Validate)
}

func (c *APIClient) FetchPhoto(ctx context.Context, ref string) (port.PhotoContent, error) {
	const op = "FetchPhoto"
	path, err := photoPath(ref)
	if err != nil {
		return port.PhotoContent{}, fmt.Errorf("%s: %w", op, err)
	}
	res, err := c.exchange(ctx, RequestDescriptor{Operation: op, Method: http.MethodGet, Path: path, Accept: "*/*", Authorize: true})
	if err != nil {
		return port.PhotoContent{}, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, maxPhotoBytes))
	if err != nil {
		return port.PhotoContent{}, fmt.Errorf("%w: %s: read body: %w", port.ErrTransport, op, err)
	}
	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return port.PhotoContent{ContentType: contentType, Data: data}, nil
}

func fetchJSON[T any](ctx context.Context, c *APIClient, desc RequestDescriptor, validate func(T) error) (T, error) {
	res, err := c.exchange(ctx, desc)
	if err != nil {
		var zero T
		return zero, err
	}
	defer res.Body.Close()
	payload, err := decodeJSON(desc.Operation, res.Body, validate)
	if err != nil {
		c.logger.Warn("api response rejected",
			slog.String("operation", desc.Operation),
			slog.String("path", desc.Path),
			slog.Any("error", err),
		)
	}
	return payload, err
}

// execute runs a call whose success carries no payload.
func (c *APIClient) execute(ctx context.Context, desc RequestDescriptor) error {
	res, err := c.exchange(ctx, desc)
	if err != nil {
		return err
	}
	drain(res)
	return nil
}

// exchange returns the 2xx response for desc, or the non-2xx outcome as a *port.APIError.
func (c *APIClient) exchange(ctx context.Context, desc RequestDescriptor) (*http.Response, error) {
	outcome, err := c.pipeline.Send(ctx, desc)
	if err != nil {
		return nil, err
	}
	res := outcome.Response
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return res, nil
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	apiErr := &port.APIError{
		Status:     res.StatusCode,
		Method:     desc.Method,
		Path:       desc.Path,
		Message:    httputil.ParseErrorBody(raw).Message,
		Body:       raw,
		RefreshErr: outcome.RefreshErr,
	}
	c.logger.Debug("api error response",
		slog.String("operation", desc.Operation),
		slog.Int("status", res.StatusCode),
		slog.Bool("replayed", outcome.Replayed),
		slog.String("message", apiErr.Message),
	)
	return nil, apiErr
}

func normalizeRestaurantRequest(req domain.RestaurantRequest) domain.RestaurantRequest {
	out := req
	out.Name = strings.TrimSpace(out.Name)
	out.CuisineType = strings.TrimSpace(out.CuisineType)
	out.ContactInformation = strings.TrimSpace(out.ContactInformation)
	out.OperatingHours = out.OperatingHours.Normalize()
	out.PhotoIDs = nonEmpty(out.PhotoIDs)
	return out
}

func normalizeReviewRequest(req domain.ReviewRequest) domain.ReviewRequest {
	out := req
	out.Content = strings.TrimSpace(out.Content)
	out.PhotoIDs = nonEmpty(out.PhotoIDs)
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var _ port.RestaurantAPI = (*APIClient)(nil)
