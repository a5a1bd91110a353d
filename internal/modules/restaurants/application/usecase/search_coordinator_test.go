package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
)

type searchFunc func(ctx context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error)

func (f searchFunc) SearchRestaurants(ctx context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
	return f(ctx, params)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchCoordinatorTranslatesPages(t *testing.T) {
	tests := []struct {
		name     string
		query    SearchQuery
		expected domain.SearchParams
	}{
		{name: "first page", query: SearchQuery{Q: " ramen ", Page: 1}, expected: domain.SearchParams{Q: "ramen", Page: 0, Size: 8}},
		{name: "third page", query: SearchQuery{Page: 3, MinRating: 4}, expected: domain.SearchParams{Page: 2, MinRating: 4, Size: 8}},
		{name: "unset page", query: SearchQuery{}, expected: domain.SearchParams{Page: 0, Size: 8}},
		{name: "negative page", query: SearchQuery{Page: -2}, expected: domain.SearchParams{Page: 0, Size: 8}},
	}
	coordinator := NewSearchCoordinator(nil, 0, discardLogger())
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := coordinator.Params(test.query); got != test.expected {
				t.Fatalf("expected %#v, got %#v", test.expected, got)
			}
		})
	}
}

func TestSearchCoordinatorBuildsWindow(t *testing.T) {
	var received domain.SearchParams
	api := searchFunc(func(_ context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
		received = params
		return domain.NewPage([]domain.RestaurantSummary{{ID: "a"}}, params.Page, params.Size, 80), nil
	})
	coordinator := NewSearchCoordinator(api, 8, discardLogger())

	result, err := coordinator.Search(context.Background(), SearchQuery{Q: "pizza", Page: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Page != 4 || received.Size != 8 {
		t.Fatalf("expected zero-based page 4 size 8, got %#v", received)
	}
	if result.CurrentPage != 5 {
		t.Fatalf("expected current page 5, got %d", result.CurrentPage)
	}
	expected := []domain.PageItem{{Number: 1}, {Ellipsis: true}, {Number: 4}, {Number: 5}, {Number: 6}, {Ellipsis: true}, {Number: 10}}
	if len(result.Window) != len(expected) {
		t.Fatalf("unexpected window %#v", result.Window)
	}
	for i := range expected {
		if result.Window[i] != expected[i] {
			t.Fatalf("window[%d] expected %#v got %#v", i, expected[i], result.Window[i])
		}
	}
	if !result.HasPrevious() || !result.HasNext() {
		t.Fatal("middle page should have both neighbours")
	}
}

func TestSearchCoordinatorEmptyResults(t *testing.T) {
	api := searchFunc(func(_ context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
		return domain.Page[domain.RestaurantSummary]{Content: []domain.RestaurantSummary{}, First: true, Last: true}, nil
	})
	result, err := NewSearchCoordinator(api, 8, discardLogger()).Search(context.Background(), SearchQuery{Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CurrentPage != 2 {
		t.Fatalf("expected requested page without envelope number, got %d", result.CurrentPage)
	}
	if len(result.Window) != 0 {
		t.Fatalf("expected empty window, got %#v", result.Window)
	}
}

func TestSearchCoordinatorDiscardsStaleResults(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := searchFunc(func(_ context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
		if params.Q == "slow" {
			close(started)
			<-release
		}
		return domain.NewPage([]domain.RestaurantSummary{{ID: params.Q}}, params.Page, params.Size, 1), nil
	})
	coordinator := NewSearchCoordinator(api, 8, discardLogger())

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = coordinator.Search(context.Background(), SearchQuery{Q: "slow", Page: 1})
	}()
	<-started

	fresh, err := coordinator.Search(context.Background(), SearchQuery{Q: "fresh", Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	wg.Wait()

	if !errors.Is(slowErr, port.ErrStaleResult) {
		t.Fatalf("expected stale result, got %v", slowErr)
	}
	if fresh.Seq != 2 || fresh.Page.Content[0].ID != "fresh" {
		t.Fatalf("unexpected fresh result %#v", fresh)
	}
}

func TestSearchCoordinatorPropagatesErrors(t *testing.T) {
	boom := &port.APIError{Status: 503}
	api := searchFunc(func(context.Context, domain.SearchParams) (domain.Page[domain.RestaurantSummary], error) {
		return domain.Page[domain.RestaurantSummary]{}, boom
	})
	_, err := NewSearchCoordinator(api, 8, discardLogger()).Search(context.Background(), SearchQuery{})
	if !errors.Is(err, port.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
}
