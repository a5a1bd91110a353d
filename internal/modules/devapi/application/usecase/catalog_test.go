package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mesaYaReviews/internal/modules/devapi/domain"
	"mesaYaReviews/internal/modules/devapi/infrastructure"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*realtime.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg *realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, msg := range p.messages {
		out = append(out, msg.Topic)
	}
	return out
}

type fixedGeo struct{ point restaurants.GeoPoint }

func (g fixedGeo) Locate(context.Context, restaurants.Address) (restaurants.GeoPoint, error) {
	return g.point, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCatalog(t *testing.T) (*Catalog, *recordingPublisher, *clock) {
	t.Helper()
	pub := &recordingPublisher{}
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	catalog := NewCatalog(infrastructure.NewMemoryRestaurantStore(), fixedGeo{point: restaurants.GeoPoint{Latitude: 39.1, Longitude: -94.6}}, pub, nil)
	catalog.now = clk.now
	seq := 0
	catalog.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return catalog, pub, clk
}

func restaurantRequest(name, cuisine string) restaurants.RestaurantRequest {
	return restaurants.RestaurantRequest{
		Name:               name,
		CuisineType:        cuisine,
		ContactInformation: "555-0100",
		Address: restaurants.Address{
			StreetNumber: "12",
			StreetName:   "Main St",
			City:         "Kansas City",
			State:        "MO",
			PostalCode:   "64105",
			Country:      "US",
		},
		OperatingHours: restaurants.OperatingHours{
			Monday: &restaurants.TimeRange{OpenTime: "09:00", CloseTime: "17:00"},
		},
		PhotoIDs: []string{"photo.png"},
	}
}

func TestCreateRestaurantValidatesAndPublishes(t *testing.T) {
	catalog, pub, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := catalog.CreateRestaurant(ctx, restaurants.RestaurantRequest{})
	var fieldErrs domain.FieldErrors
	if !errors.As(err, &fieldErrs) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected field errors, got %v", err)
	}

	created, err := catalog.CreateRestaurant(ctx, restaurantRequest("Blue Fin", "Sushi"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "id-1" || created.GeoLocation == nil || len(created.Photos) != 1 {
		t.Fatalf("unexpected restaurant %+v", created)
	}
	if created.Photos[0].Ref() != "photo.png" {
		t.Fatalf("expected photo ref photo.png, got %q", created.Photos[0].Ref())
	}
	if got := pub.topics(); len(got) != 1 || got[0] != "restaurants.created" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestSearchRestaurantsFiltersInPriorityOrder(t *testing.T) {
	catalog, _, _ := newTestCatalog(t)
	ctx := context.Background()
	for _, req := range []restaurants.RestaurantRequest{
		restaurantRequest("Blue Fin", "Sushi"),
		restaurantRequest("Taco Town", "Mexican"),
		restaurantRequest("Sushi Bar", "Japanese"),
	} {
		if _, err := catalog.CreateRestaurant(ctx, req); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := catalog.SearchRestaurants(ctx, SearchCriteria{Query: "sushi"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Content) != 2 || page.Content[0].Name != "Blue Fin" || page.Content[1].Name != "Sushi Bar" {
		t.Fatalf("unexpected query result %+v", page.Content)
	}

	floor := 4.0
	page, err = catalog.SearchRestaurants(ctx, SearchCriteria{Query: "sushi", MinRating: &floor})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Content) != 0 {
		t.Fatalf("rating floor should exclude unrated restaurants, got %+v", page.Content)
	}

	lat, lon, near, far := 39.1, -94.6, 1.0, 1.0
	page, err = catalog.SearchRestaurants(ctx, SearchCriteria{Latitude: &lat, Longitude: &lon, Radius: &near})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalElements != 3 {
		t.Fatalf("expected all restaurants within radius, got %d", page.TotalElements)
	}
	farLat := 40.5
	page, err = catalog.SearchRestaurants(ctx, SearchCriteria{Latitude: &farLat, Longitude: &lon, Radius: &far})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalElements != 0 {
		t.Fatalf("expected nothing near %v, got %d", farLat, page.TotalElements)
	}

	page, err = catalog.SearchRestaurants(ctx, SearchCriteria{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Content) != 1 || page.TotalPages != 2 || !page.Last || page.First {
		t.Fatalf("unexpected second page %+v", page)
	}
}

func TestReviewLifecycle(t *testing.T) {
	catalog, pub, clk := newTestCatalog(t)
	ctx := context.Background()
	restaurant, err := catalog.CreateRestaurant(ctx, restaurantRequest("Blue Fin", "Sushi"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	alice := restaurants.User{ID: "alice", Username: "alice"}
	bob := restaurants.User{ID: "bob", Username: "bob"}

	if _, err := catalog.CreateReview(ctx, restaurants.User{}, restaurant.ID, restaurants.ReviewRequest{Content: "x", Rating: 3}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	first, err := catalog.CreateReview(ctx, alice, restaurant.ID, restaurants.ReviewRequest{Content: "Great", Rating: 5})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if _, err := catalog.CreateReview(ctx, alice, restaurant.ID, restaurants.ReviewRequest{Content: "Again", Rating: 1}); !errors.Is(err, domain.ErrReviewNotAllowed) {
		t.Fatalf("expected a second review by the same author to be rejected, got %v", err)
	}
	clk.advance(time.Hour)
	if _, err := catalog.CreateReview(ctx, bob, restaurant.ID, restaurants.ReviewRequest{Content: "Fine", Rating: 2}); err != nil {
		t.Fatalf("create review: %v", err)
	}

	got, err := catalog.GetRestaurant(ctx, restaurant.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AverageRating != 3.5 {
		t.Fatalf("expected average 3.5, got %v", got.AverageRating)
	}

	page, err := catalog.ListReviews(ctx, restaurant.ID, ReviewQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Content) != 2 || page.Content[0].WrittenBy.ID != "bob" {
		t.Fatalf("expected newest first, got %+v", page.Content)
	}
	page, err = catalog.ListReviews(ctx, restaurant.ID, ReviewQuery{Sort: restaurants.SortRatingDesc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Content[0].Rating != 5 {
		t.Fatalf("expected highest rating first, got %+v", page.Content)
	}
	if _, err := catalog.ListReviews(ctx, restaurant.ID, ReviewQuery{Sort: "stars"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected invalid sort to be rejected, got %v", err)
	}

	if _, err := catalog.UpdateReview(ctx, bob, restaurant.ID, first.ID, restaurants.ReviewRequest{Content: "Mine now", Rating: 1}); !errors.Is(err, domain.ErrReviewNotAllowed) {
		t.Fatalf("expected non-author update to be rejected, got %v", err)
	}
	edited, err := catalog.UpdateReview(ctx, alice, restaurant.ID, first.ID, restaurants.ReviewRequest{Content: "Still great", Rating: 4})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if edited.Content != "Still great" || !edited.LastEdited.After(edited.DatePosted.Time) {
		t.Fatalf("unexpected edit %+v", edited)
	}
	clk.advance(ReviewEditWindow)
	if _, err := catalog.UpdateReview(ctx, alice, restaurant.ID, first.ID, restaurants.ReviewRequest{Content: "Late", Rating: 4}); !errors.Is(err, domain.ErrReviewNotAllowed) {
		t.Fatalf("expected edit after the window to be rejected, got %v", err)
	}

	if err := catalog.DeleteReview(ctx, restaurant.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := catalog.DeleteReview(ctx, restaurant.ID, first.ID); err != nil {
		t.Fatalf("second delete should be idempotent: %v", err)
	}
	if _, err := catalog.GetReview(ctx, restaurant.ID, first.ID); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
	if err := catalog.DeleteReview(ctx, "missing", first.ID); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}

	want := []string{"restaurants.created", "reviews.created", "reviews.created", "reviews.updated", "reviews.deleted"}
	topics := pub.topics()
	if len(topics) != len(want) {
		t.Fatalf("expected events %v, got %v", want, topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], topics[i])
		}
	}
	last := pub.messages[len(pub.messages)-1]
	if last.Metadata[realtime.MetadataRestaurantID] != restaurant.ID {
		t.Fatalf("expected restaurant id metadata, got %v", last.Metadata)
	}
}

func TestDeleteRestaurantIsIdempotent(t *testing.T) {
	catalog, pub, _ := newTestCatalog(t)
	ctx := context.Background()
	restaurant, err := catalog.CreateRestaurant(ctx, restaurantRequest("Blue Fin", "Sushi"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for range 2 {
		if err := catalog.DeleteRestaurant(ctx, restaurant.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	if _, err := catalog.GetRestaurant(ctx, restaurant.ID); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}
	if got := pub.topics(); len(got) != 2 || got[1] != "restaurants.deleted" {
		t.Fatalf("expected one delete event, got %v", got)
	}
}
