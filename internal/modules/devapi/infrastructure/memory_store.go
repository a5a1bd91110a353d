package infrastructure

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mesaYaReviews/internal/modules/devapi/application/port"
	"mesaYaReviews/internal/modules/devapi/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

// MemoryRestaurantStore keeps documents in a map. Callers always receive deep copies.
type MemoryRestaurantStore struct {
	mu    sync.RWMutex
	items map[string]restaurants.Restaurant
}

func NewMemoryRestaurantStore() *MemoryRestaurantStore {
	return &MemoryRestaurantStore{items: make(map[string]restaurants.Restaurant)}
}

func (s *MemoryRestaurantStore) Insert(_ context.Context, restaurant restaurants.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[restaurant.ID]; exists {
		return fmt.Errorf("%w: duplicate restaurant id %s", domain.ErrStorage, restaurant.ID)
	}
	s.items[restaurant.ID] = clone(restaurant)
	return nil
}

func (s *MemoryRestaurantStore) Get(_ context.Context, id string) (restaurants.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	restaurant, ok := s.items[id]
	if !ok {
		return restaurants.Restaurant{}, domain.ErrRestaurantNotFound
	}
	return clone(restaurant), nil
}

func (s *MemoryRestaurantStore) Update(_ context.Context, id string, fn func(*restaurants.Restaurant) error) (restaurants.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return restaurants.Restaurant{}, domain.ErrRestaurantNotFound
	}
	working := clone(current)
	if err := fn(&working); err != nil {
		return restaurants.Restaurant{}, err
	}
	working.ID = id
	s.items[id] = clone(working)
	return working, nil
}

func (s *MemoryRestaurantStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrRestaurantNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryRestaurantStore) All(_ context.Context) ([]restaurants.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]restaurants.Restaurant, 0, len(s.items))
	for _, restaurant := range s.items {
		out = append(out, clone(restaurant))
	}
	return out, nil
}

func clone(r restaurants.Restaurant) restaurants.Restaurant {
	out := r
	if r.GeoLocation != nil {
		point := *r.GeoLocation
		out.GeoLocation = &point
	}
	if r.CreatedBy != nil {
		user := *r.CreatedBy
		out.CreatedBy = &user
	}
	out.OperatingHours = r.OperatingHours.Normalize()
	out.Photos = slices.Clone(r.Photos)
	if r.Reviews != nil {
		out.Reviews = make([]restaurants.Review, len(r.Reviews))
		for i, review := range r.Reviews {
			review.Photos = slices.Clone(review.Photos)
			if review.WrittenBy != nil {
				author := *review.WrittenBy
				review.WrittenBy = &author
			}
			out.Reviews[i] = review
		}
	}
	return out
}

var _ port.RestaurantStore = (*MemoryRestaurantStore)(nil)
