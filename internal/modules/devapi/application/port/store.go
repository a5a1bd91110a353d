package port

import (
	"context"

	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

// RestaurantStore persists restaurant documents with their embedded reviews.
type RestaurantStore interface {
	Insert(ctx context.Context, restaurant restaurants.Restaurant) error
	Get(ctx context.Context, id string) (restaurants.Restaurant, error)
	// Update applies fn to the stored document atomically and returns the result. The
	// document is not written when fn fails.
	Update(ctx context.Context, id string, fn func(*restaurants.Restaurant) error) (restaurants.Restaurant, error)
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]restaurants.Restaurant, error)
}

// PhotoStore keeps uploaded photo bytes under a flat name.
type PhotoStore interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}

// GeoLocator resolves an address to coordinates.
type GeoLocator interface {
	Locate(ctx context.Context, address restaurants.Address) (restaurants.GeoPoint, error)
}
