package port

import (
	"context"
	"io"

	"mesaYaReviews/internal/modules/restaurants/domain"
)

// RestaurantAPI is the typed endpoint surface of the review API.
type RestaurantAPI interface {
	SearchRestaurants(ctx context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error)
	GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error)
	CreateRestaurant(ctx context.Context, req domain.CreateRestaurantRequest) (domain.Restaurant, error)
	UpdateRestaurant(ctx context.Context, id string, req domain.UpdateRestaurantRequest) error
	DeleteRestaurant(ctx context.Context, id string) error

	ListReviews(ctx context.Context, restaurantID string, params domain.ReviewListParams) (domain.Page[domain.Review], error)
	GetReview(ctx context.Context, restaurantID, reviewID string) (domain.Review, error)
	CreateReview(ctx context.Context, restaurantID string, req domain.CreateReviewRequest) (domain.Review, error)
	UpdateReview(ctx context.Context, restaurantID, reviewID string, req domain.UpdateReviewRequest) error
	DeleteReview(ctx context.Context, restaurantID, reviewID string) error

	UploadPhoto(ctx context.Context, upload PhotoUpload) (domain.Photo, error)
	FetchPhoto(ctx context.Context, ref string) (PhotoContent, error)
}

// PhotoUpload is one file to send to /photos. Caption is omitted from the form when empty.
type PhotoUpload struct {
	Filename string
	Content  io.Reader
	Caption  string
}

// PhotoContent holds downloaded photo bytes.
type PhotoContent struct {
	ContentType string
	Data        []byte
}
