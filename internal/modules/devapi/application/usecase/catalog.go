package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"mesaYaReviews/internal/modules/devapi/application/port"
	"mesaYaReviews/internal/modules/devapi/domain"
	realtimeport "mesaYaReviews/internal/modules/realtime/application/port"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/logging"
)

// ReviewEditWindow is how long after posting an author may still edit a review.
const ReviewEditWindow = 48 * time.Hour

const earthRadiusMiles = 3958.8

// SearchCriteria is the restaurant search query. Page is zero-based. Filters apply in the
// order text query (honouring the rating floor), location, rating floor, everything.
type SearchCriteria struct {
	Query     string
	MinRating *float64
	Latitude  *float64
	Longitude *float64
	// Radius is in miles.
	Radius *float64
	Page   int
	Size   int
}

// ReviewQuery selects a page of a restaurant's reviews.
type ReviewQuery struct {
	Sort restaurants.ReviewSort
	Page int
	Size int
}

// Catalog implements the restaurant and review operations of the review API.
type Catalog struct {
	store  port.RestaurantStore
	geo    port.GeoLocator
	events eventSink
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewCatalog(store port.RestaurantStore, geo port.GeoLocator, publisher realtimeport.Publisher, logger *slog.Logger) *Catalog {
	logger = logging.OrDefault(logger)
	return &Catalog{
		store:  store,
		geo:    geo,
		events: eventSink{publisher: publisher, logger: logger},
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (c *Catalog) CreateRestaurant(ctx context.Context, req restaurants.RestaurantRequest) (restaurants.Restaurant, error) {
	if err := domain.ValidateRestaurantRequest(req); err != nil {
		return restaurants.Restaurant{}, err
	}
	restaurant := restaurants.Restaurant{
		ID:      c.newID(),
		Reviews: []restaurants.Review{},
	}
	if err := c.apply(ctx, &restaurant, req); err != nil {
		return restaurants.Restaurant{}, err
	}
	if err := c.store.Insert(ctx, restaurant); err != nil {
		return restaurants.Restaurant{}, err
	}
	c.logger.Info("restaurant created", slog.String("restaurantId", restaurant.ID), slog.String("name", restaurant.Name))
	c.events.publish(ctx, realtime.NewEntityMessage(realtime.RestaurantEntity, realtime.ActionCreated, restaurant.ID, summarize(restaurant), c.now()))
	return restaurant, nil
}

// apply copies the request onto restaurant. Reviews and rating are left untouched.
func (c *Catalog) apply(ctx context.Context, restaurant *restaurants.Restaurant, req restaurants.RestaurantRequest) error {
	address := req.Address
	point, err := c.geo.Locate(ctx, address)
	if err != nil {
		return fmt.Errorf("locate %s: %w", address.Line(), err)
	}
	restaurant.Name = strings.TrimSpace(req.Name)
	restaurant.CuisineType = strings.TrimSpace(req.CuisineType)
	restaurant.ContactInformation = strings.TrimSpace(req.ContactInformation)
	restaurant.Address = address
	restaurant.GeoLocation = &point
	restaurant.OperatingHours = req.OperatingHours.Normalize()
	restaurant.Photos = c.photosFor(req.PhotoIDs)
	return nil
}

func (c *Catalog) photosFor(ids []string) []restaurants.Photo {
	refs := domain.PhotoRefs(ids)
	photos := make([]restaurants.Photo, 0, len(refs))
	uploaded := restaurants.Timestamp{Time: c.now().UTC()}
	for _, ref := range refs {
		photos = append(photos, restaurants.Photo{URL: ref, UploadDate: uploaded})
	}
	return photos
}

func (c *Catalog) GetRestaurant(ctx context.Context, id string) (restaurants.Restaurant, error) {
	return c.store.Get(ctx, strings.TrimSpace(id))
}

func (c *Catalog) UpdateRestaurant(ctx context.Context, id string, req restaurants.RestaurantRequest) (restaurants.Restaurant, error) {
	if err := domain.ValidateRestaurantRequest(req); err != nil {
		return restaurants.Restaurant{}, err
	}
	updated, err := c.store.Update(ctx, strings.TrimSpace(id), func(r *restaurants.Restaurant) error {
		return c.apply(ctx, r, req)
	})
	if err != nil {
		return restaurants.Restaurant{}, err
	}
	c.events.publish(ctx, realtime.NewEntityMessage(realtime.RestaurantEntity, realtime.ActionUpdated, updated.ID, summarize(updated), c.now()))
	return updated, nil
}

// DeleteRestaurant is idempotent; deleting an unknown id succeeds.
func (c *Catalog) DeleteRestaurant(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	err := c.store.Delete(ctx, id)
	switch {
	case errors.Is(err, domain.ErrRestaurantNotFound):
		return nil
	case err != nil:
		return err
	}
	c.logger.Info("restaurant deleted", slog.String("restaurantId", id))
	c.events.publish(ctx, realtime.NewEntityMessage(realtime.RestaurantEntity, realtime.ActionDeleted, id, nil, c.now()))
	return nil
}

func (c *Catalog) SearchRestaurants(ctx context.Context, criteria SearchCriteria) (restaurants.Page[restaurants.RestaurantSummary], error) {
	params := restaurants.SearchParams{Page: criteria.Page, Size: criteria.Size}.Normalize()
	all, err := c.store.All(ctx)
	if err != nil {
		return restaurants.Page[restaurants.RestaurantSummary]{}, err
	}

	matched := make([]restaurants.Restaurant, 0, len(all))
	for _, r := range all {
		if criteria.matches(r) {
			matched = append(matched, r)
		}
	}
	slices.SortStableFunc(matched, func(a, b restaurants.Restaurant) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), cmp.Compare(a.ID, b.ID))
	})

	window := pageOf(matched, params.Page, params.Size)
	summaries := make([]restaurants.RestaurantSummary, 0, len(window))
	for _, r := range window {
		summaries = append(summaries, summarize(r))
	}
	return restaurants.NewPage(summaries, params.Page, params.Size, len(matched)), nil
}

func (s SearchCriteria) matches(r restaurants.Restaurant) bool {
	if query := strings.ToLower(strings.TrimSpace(s.Query)); query != "" {
		floor := 0.0
		if s.MinRating != nil {
			floor = *s.MinRating
		}
		return r.AverageRating >= floor && matchesQuery(r, query)
	}
	if s.Latitude != nil && s.Longitude != nil && s.Radius != nil {
		if r.GeoLocation == nil {
			return false
		}
		return distanceMiles(*s.Latitude, *s.Longitude, r.GeoLocation.Latitude, r.GeoLocation.Longitude) <= *s.Radius
	}
	if s.MinRating != nil {
		return r.AverageRating >= *s.MinRating
	}
	return true
}

// matchesQuery requires every term to appear in the name or the cuisine type.
func matchesQuery(r restaurants.Restaurant, query string) bool {
	haystack := strings.ToLower(r.Name + " " + r.CuisineType)
	for _, term := range strings.Fields(query) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func distanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

func summarize(r restaurants.Restaurant) restaurants.RestaurantSummary {
	photos := r.Photos
	if photos == nil {
		photos = []restaurants.Photo{}
	}
	return restaurants.RestaurantSummary{
		ID:            r.ID,
		Name:          r.Name,
		CuisineType:   r.CuisineType,
		AverageRating: r.AverageRating,
		TotalReviews:  len(r.Reviews),
		Address:       r.Address,
		Photos:        photos,
	}
}

func pageOf[T any](items []T, page, size int) []T {
	start := page * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}
